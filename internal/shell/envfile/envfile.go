// Package envfile reads and writes the NAME=VALUE files dploy generates for the app.
package envfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/artpar/dploy/internal/core/deployment"
)

// Banner lines separating service-owned from app-owned variables.
const (
	BannerOwnVariables = "# Your own variables come after this line"
	BannerModify       = "# Feel free to modify them as you want"
)

// dollarPlaceholder stands in for '$' while godotenv parses, so ${NAME}
// references are never expanded and come back verbatim.
const dollarPlaceholder = "\uE000"

// Load reads the env file at path.
//
// Values are returned verbatim: ${NAME} references are left for the caller to
// resolve. A file that fails to parse as a whole is read line by line and the
// malformed lines are skipped. A missing file returns an error wrapping
// fs.ErrNotExist.
func Load(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(content), nil
}

// Parse parses env file content with the rules of Load.
func Parse(content []byte) map[string]string {
	values, err := unmarshal(content)
	if err == nil {
		return values
	}

	values = make(map[string]string)
	for _, line := range bytes.Split(content, []byte("\n")) {
		parsed, err := unmarshal(line)
		if err != nil {
			continue
		}
		for k, v := range parsed {
			values[k] = v
		}
	}
	return values
}

func unmarshal(content []byte) (map[string]string, error) {
	guarded := bytes.ReplaceAll(content, []byte("$"), []byte(dollarPlaceholder))
	values, err := godotenv.UnmarshalBytes(guarded)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		values[k] = strings.ReplaceAll(v, dollarPlaceholder, "$")
	}
	return values, nil
}

// =============================================================================
// Render
// =============================================================================

// Render formats env as file content: the service section, a blank line, the
// two banner lines, then the app section. Values are quoted and escaped by
// godotenv, so Load returns them unchanged.
func Render(env deployment.Environment) (string, error) {
	var sb strings.Builder
	if err := writeSection(&sb, env.Service); err != nil {
		return "", err
	}
	sb.WriteString("\n")
	sb.WriteString(BannerOwnVariables + "\n")
	sb.WriteString(BannerModify + "\n")
	if err := writeSection(&sb, env.App); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeSection(sb *strings.Builder, vars []deployment.EnvVar) error {
	for _, v := range vars {
		line, err := marshalVar(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", v.Name, err)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return nil
}

// marshalVar writes one NAME=VALUE line with godotenv.Marshal, except where
// godotenv would not read the value back:
//   - integers are written bare in canonical form, so "007" is quoted here
//   - a double-quoted value loses a trailing escaped quote, so such values are
//     single-quoted when they hold no single quote or newline
//   - a trailing backslash escapes the closing quote, so such values are
//     written bare when they hold no blank, comment or quote characters
func marshalVar(v deployment.EnvVar) (string, error) {
	if n, err := strconv.Atoi(v.Value); err == nil && strconv.Itoa(n) != v.Value {
		return v.Name + `="` + v.Value + `"`, nil
	}
	if strings.HasSuffix(v.Value, `"`) && !strings.ContainsAny(v.Value, "'\n\r") {
		return v.Name + "='" + v.Value + "'", nil
	}
	if strings.HasSuffix(v.Value, `\`) && !strings.ContainsAny(v.Value, " \t\n\r#'\"") {
		return v.Name + "=" + v.Value, nil
	}
	return godotenv.Marshal(map[string]string{v.Name: v.Value})
}

// Write replaces the file at path with content. The file is written next to
// its destination and renamed into place, so readers never see a partial file.
// An existing file keeps its permissions; a new one is created 0600.
func Write(path, content string) error {
	mode := fs.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat env file: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp env file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write env file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod env file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close env file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace env file: %w", err)
	}
	return nil
}
