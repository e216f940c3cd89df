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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalRecord(r SummaryRecord) []byte {
	buf := make([]byte, SummaryRecordMUS.Size(r))
	n := SummaryRecordMUS.Marshal(r, buf)
	return buf[:n]
}

func TestSummaryRecordMUS_PreservesTreeShape(t *testing.T) {
	record := SummaryRecord{
		ID:      "sum",
		Summary: "overview",
		Root: &SummaryNode{
			Level: 1, Content: "overview", MaxTokens: 1000,
			Children: []*SummaryNode{
				{Level: 2, Topic: "Install", Content: "pip install", MaxTokens: 500, Children: []*SummaryNode{}},
				{Level: 2, Topic: "Usage", Content: "run it", MaxTokens: 500, Children: []*SummaryNode{
					{Level: 3, Topic: "Flags", Content: "--verbose", MaxTokens: 250},
				}},
			},
		},
		DocumentCount:   3,
		HierarchyLevels: 3,
		MaxTokens:       1000,
		CreatedAt:       time.Date(2025, 4, 2, 8, 30, 0, 123000, time.UTC),
	}

	buf := marshalRecord(record)
	assert.Len(t, buf, SummaryRecordMUS.Size(record))

	got, n, err := SummaryRecordMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, record, got)
	assert.NotNil(t, got.Root.Children[0].Children, "empty children stay empty")
	assert.Nil(t, got.Root.Children[1].Children[0].Children, "nil children stay nil")
}

func TestSummaryRecordMUS_NilRoot(t *testing.T) {
	record := SummaryRecord{ID: "empty", CreatedAt: time.Unix(0, 0).UTC()}
	got, _, err := SummaryRecordMUS.Unmarshal(marshalRecord(record))
	require.NoError(t, err)
	assert.Nil(t, got.Root)
	assert.Equal(t, record, got)
}

func TestSummaryInfoMUS_DecodesRecordPrefix(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	record := SummaryRecord{
		ID: "abc", Summary: "s", DocumentCount: 7, CreatedAt: created,
		Root: &SummaryNode{Level: 1, Content: "s"},
	}

	info, n, err := SummaryInfoMUS.Unmarshal(marshalRecord(record))
	require.NoError(t, err)
	assert.Equal(t, SummaryInfo{ID: "abc", DocumentCount: 7, CreatedAt: created}, info)
	assert.Equal(t, SummaryInfoMUS.Size(info), n)
}

func TestSummaryNodeMUS_Errors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		node := &SummaryNode{Level: 1, Content: "content", Children: []*SummaryNode{{Level: 2}}}
		buf := make([]byte, SummaryNodeMUS.Size(node))
		SummaryNodeMUS.Marshal(node, buf)

		_, _, err := SummaryNodeMUS.Unmarshal(buf[:len(buf)-1])
		assert.Error(t, err)
	})

	t.Run("child count beyond input", func(t *testing.T) {
		node := &SummaryNode{Level: 1, Children: []*SummaryNode{{Level: 2}, {Level: 2}}}
		buf := make([]byte, SummaryNodeMUS.Size(node))
		SummaryNodeMUS.Marshal(node, buf)

		// Drop both children but keep the count.
		cut := buf[:len(buf)-SummaryNodeMUS.Size(node.Children[0])*2]
		_, _, err := SummaryNodeMUS.Unmarshal(cut)
		assert.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("too deep", func(t *testing.T) {
		root := &SummaryNode{Level: 1}
		node := root
		for i := 0; i < maxDecodeDepth; i++ {
			child := &SummaryNode{Level: node.Level + 1}
			node.Children = []*SummaryNode{child}
			node = child
		}
		buf := make([]byte, SummaryNodeMUS.Size(root))
		SummaryNodeMUS.Marshal(root, buf)

		_, _, err := SummaryNodeMUS.Unmarshal(buf)
		assert.ErrorIs(t, err, ErrTreeTooDeep)
	})
}
