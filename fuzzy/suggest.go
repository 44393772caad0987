// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package fuzzy

// MaxSuggestDistance is the largest edit
// distance at which Suggest offers a candidate.
const MaxSuggestDistance = 2

// Suggest returns the candidate closest to word,
// provided it is within MaxSuggestDistance edits
// and is not word itself. Ties are broken in
// favor of the earliest candidate.
func Suggest(word string, candidates []string) (string, bool) {
	best, bestd := "", MaxSuggestDistance+1
	for _, c := range candidates {
		if c == word {
			continue
		}
		if d := Distance(word, c); d < bestd {
			best, bestd = c, d
		}
	}
	return best, bestd <= MaxSuggestDistance
}
