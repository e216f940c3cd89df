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


package summarize

import "fmt"

const (
	summaryTemperature = 0.3
	topicTemperature   = 0.2
	extractTemperature = 0.2

	topicMaxTokens   = 400
	extractMaxTokens = 1500

	// MaxTopics bounds the children of any node.
	MaxTopics = 5
)

const summarySystemPrompt = "You are a technical documentation assistant specializing in creating clear, accurate, and comprehensive summaries of technical documentation."

const topicSystemPrompt = "You are a technical documentation assistant specializing in identifying and organizing key topics in technical documentation."

const extractSystemPrompt = "You are a technical documentation assistant specializing in extracting and organizing relevant information on specific topics from technical documentation."

const rootSummaryPromptTemplate = `Summarize the following documentation content in a detailed, well-structured summary.
Focus on preserving the most important technical information, including API details, parameters, and concepts.
Organize the information in a way that makes it easy to understand and reference.

Text to summarize:
%s

Summary:`

const detailSummaryPromptTemplate = `Create a more detailed and specific summary of the following documentation content,
focusing on technical details, API specifications, parameter descriptions, and usage examples.
Organize the information hierarchically with clear sections and subsections.

Text to summarize:
%s

Detailed summary:`

const topicPromptTemplate = `Analyze the following documentation content and identify the %d most important
distinct topics or sections that should be explored in more detail. Return ONLY a JSON array of strings
with each topic name, without any additional text or explanation.

Text to analyze:
%s

Topics (JSON array only):`

const extractPromptTemplate = `Extract all content related to the topic %q from the following documentation.
Include all relevant information, examples, parameters, and technical details about this specific topic.
Maintain the original structure and technical accuracy of the content.

Documentation:
%s

Content about %q:`

func summaryPrompt(level int, text string) string {
	if level == 1 {
		return fmt.Sprintf(rootSummaryPromptTemplate, text)
	}
	return fmt.Sprintf(detailSummaryPromptTemplate, text)
}

func topicPrompt(text string) string {
	return fmt.Sprintf(topicPromptTemplate, MaxTopics, text)
}

func extractPrompt(topic, documents string) string {
	return fmt.Sprintf(extractPromptTemplate, topic, documents, topic)
}
