// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/poiesic/docraptor/core"
)

// MarshalSummaryRecord serializes a SummaryRecord, including its whole tree, to bytes.
func MarshalSummaryRecord(record *core.SummaryRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: nil record", ErrSerializationFailed)
	}
	buf := make([]byte, core.SummaryRecordMUS.Size(*record))
	core.SummaryRecordMUS.Marshal(*record, buf)
	return buf, nil
}

// UnmarshalSummaryRecord deserializes a SummaryRecord from bytes.
func UnmarshalSummaryRecord(data []byte) (*core.SummaryRecord, error) {
	record, n, err := core.SummaryRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &record, nil
}

// UnmarshalSummaryInfo decodes only the listing fields of a serialized SummaryRecord.
// The tree is not materialized.
func UnmarshalSummaryInfo(data []byte) (core.SummaryInfo, error) {
	info, _, err := core.SummaryInfoMUS.Unmarshal(data)
	if err != nil {
		return core.SummaryInfo{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return info, nil
}
