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


// Package search ranks program records against a user profile.
//
// The Retriever combines two index primitives on the client side: an
// attribute filter over the known profile fields and a vector similarity
// query over the user's free text. Each candidate scores
//
//	alpha * filterMatchRatio + (1 - alpha) * cosine
//
// When nothing satisfies the filter the whole index is ranked instead and the
// set is flagged Fallback. When the embedding provider or the vector query
// fails the ranking is predicate-only and the set is flagged Degraded.
package search
