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


package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Summary records are stored in MUS format. Field order is part of the format:
// the listing fields lead, so SummaryInfoMUS decodes a prefix of a SummaryRecordMUS
// encoding. Timestamps are Unix microseconds in UTC.

// maxDecodeDepth bounds recursion when decoding a SummaryNode tree.
const maxDecodeDepth = 64

var (
	// ErrInvalidLength is returned when an encoded slice length is out of range.
	ErrInvalidLength = errors.New("mus: invalid length")
	// ErrTreeTooDeep is returned when an encoded tree exceeds maxDecodeDepth.
	ErrTreeTooDeep = errors.New("mus: summary tree too deep")
)

var (
	SummaryNodeMUS   = summaryNodeMUS{}
	SummaryRecordMUS = summaryRecordMUS{}
	SummaryInfoMUS   = summaryInfoMUS{}
)

var (
	_ mus.Serializer[*SummaryNode]  = SummaryNodeMUS
	_ mus.Serializer[SummaryRecord] = SummaryRecordMUS
	_ mus.Serializer[SummaryInfo]   = SummaryInfoMUS
)

// timeMUS writes times as Unix microseconds.
type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

var timeSer = timeMUS{}

// summaryInfoMUS covers ID, DocumentCount and CreatedAt.
type summaryInfoMUS struct{}

func (summaryInfoMUS) Marshal(v SummaryInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += varint.Int.Marshal(v.DocumentCount, bs[n:])
	n += timeSer.Marshal(v.CreatedAt, bs[n:])
	return
}

func (summaryInfoMUS) Unmarshal(bs []byte) (v SummaryInfo, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DocumentCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = timeSer.Unmarshal(bs[n:])
	n += n1
	return
}

func (summaryInfoMUS) Size(v SummaryInfo) (size int) {
	size = ord.String.Size(v.ID)
	size += varint.Int.Size(v.DocumentCount)
	return size + timeSer.Size(v.CreatedAt)
}

func (s summaryInfoMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type summaryRecordMUS struct{}

func (summaryRecordMUS) Marshal(v SummaryRecord, bs []byte) (n int) {
	n = SummaryInfoMUS.Marshal(v.Info(), bs)
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += varint.Int.Marshal(v.HierarchyLevels, bs[n:])
	n += varint.Int.Marshal(v.MaxTokens, bs[n:])
	n += SummaryNodeMUS.Marshal(v.Root, bs[n:])
	return
}

func (summaryRecordMUS) Unmarshal(bs []byte) (v SummaryRecord, n int, err error) {
	info, n, err := SummaryInfoMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.ID, v.DocumentCount, v.CreatedAt = info.ID, info.DocumentCount, info.CreatedAt

	var n1 int
	v.Summary, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.HierarchyLevels, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.MaxTokens, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Root, n1, err = SummaryNodeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (summaryRecordMUS) Size(v SummaryRecord) (size int) {
	size = SummaryInfoMUS.Size(v.Info())
	size += ord.String.Size(v.Summary)
	size += varint.Int.Size(v.HierarchyLevels)
	size += varint.Int.Size(v.MaxTokens)
	return size + SummaryNodeMUS.Size(v.Root)
}

func (s summaryRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// summaryNodeMUS encodes a node behind a presence flag. Children are
// length-prefixed, with -1 marking a nil slice.
type summaryNodeMUS struct{}

func (s summaryNodeMUS) Marshal(v *SummaryNode, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v == nil {
		return
	}
	n += varint.Int.Marshal(v.Level, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Topic, bs[n:])
	n += varint.Int.Marshal(v.MaxTokens, bs[n:])
	n += varint.Int.Marshal(childCount(v.Children), bs[n:])
	for _, child := range v.Children {
		n += s.Marshal(child, bs[n:])
	}
	return
}

func (s summaryNodeMUS) Unmarshal(bs []byte) (*SummaryNode, int, error) {
	return s.unmarshal(bs, 1)
}

func (s summaryNodeMUS) unmarshal(bs []byte, depth int) (v *SummaryNode, n int, err error) {
	if depth > maxDecodeDepth {
		return nil, 0, ErrTreeTooDeep
	}
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return
	}
	v = &SummaryNode{}

	var n1 int
	v.Level, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Topic, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.MaxTokens, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	var count int
	count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	// Every encoded child occupies at least one byte.
	if count < -1 || count > len(bs)-n {
		err = ErrInvalidLength
		return
	}
	if count == -1 {
		return
	}
	v.Children = make([]*SummaryNode, count)
	for i := range v.Children {
		v.Children[i], n1, err = s.unmarshal(bs[n:], depth+1)
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s summaryNodeMUS) Size(v *SummaryNode) (size int) {
	size = ord.Bool.Size(v != nil)
	if v == nil {
		return
	}
	size += varint.Int.Size(v.Level)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Topic)
	size += varint.Int.Size(v.MaxTokens)
	size += varint.Int.Size(childCount(v.Children))
	for _, child := range v.Children {
		size += s.Size(child)
	}
	return
}

func (s summaryNodeMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

func childCount(children []*SummaryNode) int {
	if children == nil {
		return -1
	}
	return len(children)
}
