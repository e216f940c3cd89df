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


package crawler

import "errors"

var (
	// ErrBaseURLRequired is returned when a client is created without a base URL.
	ErrBaseURLRequired = errors.New("crawler base URL is required")

	// ErrClientRequired is returned when a poller is created without a status client.
	ErrClientRequired = errors.New("crawler client is required")

	// ErrJobIDRequired is returned when a job id is empty.
	ErrJobIDRequired = errors.New("crawl job id is required")

	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidCheckInterval is returned when a poll interval is not positive.
	ErrInvalidCheckInterval = errors.New("check interval must be positive")
)
