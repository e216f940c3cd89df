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


package weaviate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/weaviate/weaviate/entities/models"
)

func (s *Store) classDefinition() *models.Class {
	vectorizer := s.vectorizer
	if s.embedder != nil {
		vectorizer = "none"
	}
	text := []string{"text"}
	return &models.Class{
		Class:       s.className,
		Description: "Documentation content with embeddings",
		Vectorizer:  vectorizer,
		Properties: []*models.Property{
			{Name: "content", Description: "The documentation content", DataType: text},
			{Name: "title", Description: "The title of the documentation", DataType: text},
			{Name: "url", Description: "The URL of the documentation", DataType: text},
			{Name: "source", Description: "The source of the documentation", DataType: text},
			{Name: "version", Description: "The version of the documentation", DataType: text},
		},
	}
}

// EnsureSchema creates the document class if it does not exist.
// The check and the create are separate requests, so concurrent callers in
// different processes may both try to create it; the loser's "already exists"
// response is treated as success.
func (s *Store) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(s.className).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", classify(ctx, err))
	}
	if exists {
		s.logger.Debug("schema class exists")
		return nil
	}

	err = s.client.Schema().ClassCreator().
		WithClass(s.classDefinition()).
		Do(ctx)
	if err != nil {
		if statusCode(err) == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(err.Error()), "already exists") {
			s.logger.Debug("schema class created concurrently")
			return nil
		}
		return fmt.Errorf("failed to create schema: %w", classify(ctx, err))
	}

	s.logger.Info("created schema class")
	return nil
}
