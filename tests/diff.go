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

package tests

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Diff produces a unified diff from want to got.
// It returns false if the diff could not be run.
func Diff(want, got string) (string, bool) {
	dir, err := os.MkdirTemp("", "diff")
	if err != nil {
		return "", false
	}
	defer os.RemoveAll(dir)
	for name, text := range map[string]string{"want": want, "got": got} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0600); err != nil {
			return "", false
		}
	}
	cmd := exec.Command("diff", "-u", "want", "got")
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil && !strings.HasPrefix(err.Error(), "exit status ") {
		return "", false
	}
	return string(output), true
}
