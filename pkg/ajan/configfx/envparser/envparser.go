// Package envparser parses .env-style files (KEY=VALUE per line, shell
// comments, optional quoting) into the flat map[string]any ConfigManager
// resources build on, the same shape jsonparser produces from JSON.
package envparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flashcache/flashcache/pkg/ajan/lib"
)

var ErrParsingError = errors.New("parsing error")

// Parse reads KEY=VALUE lines from r into m. Blank lines and lines whose
// first non-space character is '#' are skipped; a leading "export " on a
// line is stripped; values may be wrapped in matching single or double
// quotes, which are removed. When keyCaseInsensitive is set, a key that
// already exists in m under a different case is overwritten in place
// rather than added as a second entry.
func Parse(m *map[string]any, r io.Reader, keyCaseInsensitive bool) error { //nolint:varnamelen
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if keyCaseInsensitive {
			lib.CaseInsensitiveSet(m, key, value)
		} else {
			(*m)[key] = value
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrParsingError, err)
	}

	return nil
}

func unquote(value string) string {
	if len(value) < 2 { //nolint:mnd
		return value
	}

	first := value[0]
	last := value[len(value)-1]

	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return value[1 : len(value)-1]
	}

	return value
}

func tryParseFile(m *map[string]any, filename string, keyCaseInsensitive bool) (err error) { //nolint:varnamelen
	file, fileErr := os.Open(filepath.Clean(filename))
	if fileErr != nil {
		if os.IsNotExist(fileErr) {
			return nil
		}

		return fmt.Errorf("%w: %w", ErrParsingError, fileErr)
	}

	defer func() {
		err = file.Close()
	}()

	return Parse(m, file, keyCaseInsensitive)
}

// TryParseFiles parses each of filenames in order into m, later files
// overriding keys set by earlier ones; a missing file is skipped rather
// than treated as an error, the same convention jsonparser.TryParseFiles
// uses.
func TryParseFiles(m *map[string]any, keyCaseInsensitive bool, filenames ...string) error {
	for _, filename := range filenames {
		if err := tryParseFile(m, filename, keyCaseInsensitive); err != nil {
			return err
		}
	}

	return nil
}
