package squarecloud

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ConfigFileName is the manifest every uploaded archive must carry at
// its root.
const ConfigFileName = "squarecloud.app"

// ErrMissingConfig is returned when an archive has no manifest at its root.
var ErrMissingConfig = errors.New("squarecloud: archive has no " + ConfigFileName + " at its root")

// MissingKeyError is returned when a required manifest key is absent.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("bad config file: missing required key %q", e.Key)
}

// ConfigFile is the application manifest, serialized as one KEY=value
// per line. Main, Memory, Version and DisplayName are required.
type ConfigFile struct {
	Main        string
	Memory      int
	Version     string
	DisplayName string
	Subdomain   string
	Description string
	Autorestart bool
	Start       string
}

// ParseConfigFile parses the flat KEY=value manifest format. Key
// matching is case-insensitive; the first missing required key fails
// parsing with a MissingKeyError naming it in upper case.
func ParseConfigFile(text string) (*ConfigFile, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	require := func(key string) (string, error) {
		value, ok := fields[key]
		if !ok {
			return "", &MissingKeyError{Key: strings.ToUpper(key)}
		}
		return value, nil
	}

	cfg := &ConfigFile{}
	var err error

	if cfg.Main, err = require("main"); err != nil {
		return nil, err
	}
	memory, err := require("memory")
	if err != nil {
		return nil, err
	}
	if cfg.Memory, err = strconv.Atoi(memory); err != nil {
		return nil, fmt.Errorf("bad config file: MEMORY must be an integer, got %q", memory)
	}
	if cfg.Version, err = require("version"); err != nil {
		return nil, err
	}
	if cfg.Version != "recommended" && cfg.Version != "latest" {
		return nil, fmt.Errorf("bad config file: VERSION must be \"recommended\" or \"latest\", got %q", cfg.Version)
	}
	if cfg.DisplayName, err = require("display_name"); err != nil {
		return nil, err
	}

	cfg.Subdomain = fields["subdomain"]
	cfg.Description = fields["description"]
	cfg.Autorestart = strings.EqualFold(fields["autorestart"], "true")
	cfg.Start = fields["start"]

	return cfg, nil
}

// String serializes the manifest back to the KEY=value format.
func (c *ConfigFile) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MAIN=%s\n", c.Main)
	fmt.Fprintf(&b, "MEMORY=%d\n", c.Memory)
	fmt.Fprintf(&b, "VERSION=%s\n", c.Version)
	fmt.Fprintf(&b, "DISPLAY_NAME=%s\n", c.DisplayName)

	if c.Subdomain != "" {
		fmt.Fprintf(&b, "SUBDOMAIN=%s\n", c.Subdomain)
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "DESCRIPTION=%s\n", c.Description)
	}
	if c.Autorestart {
		b.WriteString("AUTORESTART=true\n")
	}
	if c.Start != "" {
		fmt.Fprintf(&b, "START=%s\n", c.Start)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// ParseArchiveConfig validates a zip archive client-side before any
// network call: the archive must be readable and carry a parseable
// manifest at its root.
func ParseArchiveConfig(data []byte) (*ConfigFile, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("squarecloud: invalid zip archive: %w", err)
	}

	for _, entry := range reader.File {
		if entry.Name != ConfigFileName {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		text, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		return ParseConfigFile(string(text))
	}

	return nil, ErrMissingConfig
}
