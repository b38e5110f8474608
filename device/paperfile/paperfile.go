/*
 * Shared paper-removal rename cycle for the line-printer families.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package paperfile implements the timestamp-rename cycle both
// printer families use for operator-driven paper removal: rename the
// closed capture file to an archive name of the form
// "<prefix>_YYYYMMDD_hhmmss_NN[.suffix]", retrying with a fresh clock
// read and an incremented NN until a name that does not already exist
// is found, bounded at 100 attempts.
package paperfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const maxAttempts = 100

// RenameWithRetry renames oldName to "<dir><prefix>_YYYYMMDD_hhmmss_NN<suffix>"
// in the same directory as oldName, re-reading the wall clock between
// attempts. suffix should include its leading dot, e.g. ".txt", or be
// empty. It returns the archive path on success.
func RenameWithRetry(oldName, prefix, suffix string) (string, error) {
	dir := filepath.Dir(oldName) + string(filepath.Separator)
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		now := time.Now()
		candidate := fmt.Sprintf("%s%s_%s_%02d%s", dir, prefix, now.Format("20060102_150405"), attempt, suffix)
		if _, err := os.Stat(candidate); err == nil {
			lastErr = fmt.Errorf("archive name %q already exists", candidate)
			continue
		}
		if err := os.Rename(oldName, candidate); err != nil {
			lastErr = err
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("paperfile: exhausted %d rename attempts, last error: %w", maxAttempts, lastErr)
}
