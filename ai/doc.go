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


// Package ai provides abstractions for the AI services used by the matching engine.
//
// Two capabilities are consumed from outside:
//
//   - Embedder: computes vectors for program text and user free text
//   - QuestionPhraser: turns a chosen profile field into a natural question
//
// AIProvider aggregates both for initialization and lifecycle management.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs via langchaingo
//   - ai/mock: test doubles without external dependencies
//
// Public constructors in ai/openai return interfaces. Mock constructors return
// concrete types so tests can inject behavior and read call counts.
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "청년 창업 지원")
package ai
