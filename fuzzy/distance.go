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

// Package fuzzy finds near misses among
// identifiers, for "did you mean" hints.
package fuzzy

// Damerau-Levenshtein distance after
// https://pkg.go.dev/github.com/lmas/Damerau-Levenshtein

func minimum(is ...int) int {
	min := is[0]
	for _, i := range is {
		if min > i {
			min = i
		}
	}
	return min
}

// Distance returns the true Damerau-Levenshtein
// distance between a and b, measured in runes.
//
// Distance is safe to call concurrently.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	lenA, lenB := len(ra), len(rb)
	switch {
	case lenA < 1:
		return lenB
	case lenB < 1:
		return lenA
	}
	matrix := make([][]int, lenA+2)
	for i := range matrix {
		matrix[i] = make([]int, lenB+2)
	}
	inf := lenA + lenB + 1
	matrix[0][0] = inf
	for i := 0; i <= lenA; i++ {
		matrix[i+1][1] = i
		matrix[i+1][0] = inf
	}
	for j := 0; j <= lenB; j++ {
		matrix[1][j+1] = j
		matrix[0][j+1] = inf
	}

	// last row in which each rune was seen
	da := make(map[rune]int)
	for i := 1; i <= lenA; i++ {
		db := 0
		for j := 1; j <= lenB; j++ {
			i1 := da[rb[j-1]]
			j1 := db
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
				db = j
			}
			matrix[i+1][j+1] = minimum(
				matrix[i][j]+cost,                  // substitution
				matrix[i+1][j]+1,                   // insertion
				matrix[i][j+1]+1,                   // deletion
				matrix[i1][j1]+(i-i1-1)+1+(j-j1-1), // transposition
			)
		}
		da[ra[i-1]] = i
	}
	return matrix[lenA+1][lenB+1]
}
