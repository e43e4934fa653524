// Package config reads the sectioned key-value configuration document that
// declares the merged volumes. Section headers name one volume each; the
// key=value bodies inside a section are handed to a generic provider.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type genericConfigProvider interface {
	Parse(r io.Reader) (map[string]string, error)
}

// GodotenvProvider parses key=value bodies through godotenv.
type GodotenvProvider struct{}

// Parse implements the generic provider on top of godotenv.
func (GodotenvProvider) Parse(r io.Reader) (map[string]string, error) {
	return godotenv.Parse(r) //nolint:wrapcheck
}

// Handler is the principal implementation for configuration reading.
type Handler struct {
	genericHandler genericConfigProvider
}

// NewHandler returns a configuration [Handler].
func NewHandler(genericHandler genericConfigProvider) *Handler {
	return &Handler{
		genericHandler: genericHandler,
	}
}

// Volume is the configuration of one merged volume.
type Volume struct {
	Name                    string
	Pools                   []Pool
	Mountpoint              string
	WarnLowGB               uint64
	WarnDaysWithoutSnapshot int
	SlopShift               int
	Properties              map[string]string
	PostMountAction         string
	PreUnmountAction        string
}

// Pool is the configuration of one member pool of a [Volume].
type Pool struct {
	Pool    string
	Dataset string
	Mode    BranchMode
}

// QualifiedName returns the dataset-qualified name of the pool.
func (p Pool) QualifiedName() string {
	if p.Dataset == "" {
		return p.Pool
	}

	return p.Pool + "/" + p.Dataset
}

// Load reads and parses the configuration document at path.
func (c *Handler) Load(path string) ([]Volume, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("(config) failed to read %q: %w", path, err)
	}

	return c.parseDocument(string(raw))
}

// parseDocument splits the document into sections and parses each section
// body with the generic provider. Volumes are returned in document order.
func (c *Handler) parseDocument(document string) ([]Volume, error) {
	volumes := []Volume{}

	var name string
	var body strings.Builder

	flush := func() error {
		if name == "" {
			if strings.TrimSpace(body.String()) != "" {
				return fmt.Errorf("(config) %w", ErrKeysOutsideSection)
			}

			return nil
		}

		volume, err := c.parseSection(name, body.String())
		if err != nil {
			return err
		}
		volumes = append(volumes, volume)

		return nil
	}

	for line := range strings.Lines(document) {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if err := flush(); err != nil {
				return nil, err
			}

			name = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, fmt.Errorf("(config) %w", ErrEmptySectionName)
			}
			body.Reset()

			continue
		}

		body.WriteString(line)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	return volumes, nil
}

func (c *Handler) parseSection(name string, body string) (Volume, error) {
	configMap, err := c.genericHandler.Parse(strings.NewReader(body))
	if err != nil {
		return Volume{}, fmt.Errorf("(config) failed to parse section (%s): %w", name, err)
	}

	volume := Volume{
		Name:                    name,
		Mountpoint:              c.MapKeyToString(configMap, SettingMountpoint),
		WarnLowGB:               c.MapKeyToUInt64(configMap, SettingWarnLowGB),
		WarnDaysWithoutSnapshot: c.MapKeyToInt(configMap, SettingWarnDaysWithoutSnapshot),
		SlopShift:               c.MapKeyToInt(configMap, SettingSlop),
		PostMountAction:         c.MapKeyToString(configMap, SettingPostMountAction),
		PreUnmountAction:        c.MapKeyToString(configMap, SettingPreUnmountAction),
	}

	if volume.Mountpoint == "" {
		return Volume{}, fmt.Errorf("(config) section (%s): %w", name, ErrNoMountpoint)
	}

	pools, err := parsePoolTokens(c.MapKeyToString(configMap, SettingPools))
	if err != nil {
		return Volume{}, fmt.Errorf("(config) section (%s): %w", name, err)
	}
	volume.Pools = pools

	properties, err := parsePropertyTokens(c.MapKeyToString(configMap, SettingProperties))
	if err != nil {
		return Volume{}, fmt.Errorf("(config) section (%s): %w", name, err)
	}
	volume.Properties = properties

	return volume, nil
}

// parsePoolTokens parses the space-separated member pool declarations of
// form `pool[/dataset][=branchmode]`.
func parsePoolTokens(value string) ([]Pool, error) {
	tokens := strings.Fields(value)
	if len(tokens) == 0 {
		return nil, ErrNoPools
	}

	pools := make([]Pool, 0, len(tokens))

	for _, token := range tokens {
		name, modeToken, hasMode := strings.Cut(token, "=")

		mode := ModeReadWrite
		if hasMode {
			parsed, err := ParseBranchMode(modeToken)
			if err != nil {
				return nil, fmt.Errorf("pool token (%s): %w", token, err)
			}
			mode = parsed
		}

		poolName, dataset, _ := strings.Cut(name, "/")
		if poolName == "" {
			return nil, fmt.Errorf("pool token (%s): %w", token, ErrEmptyPoolName)
		}

		pools = append(pools, Pool{
			Pool:    poolName,
			Dataset: dataset,
			Mode:    mode,
		})
	}

	return pools, nil
}

// parsePropertyTokens parses the space-separated `key=value` property pairs.
func parsePropertyTokens(value string) (map[string]string, error) {
	properties := map[string]string{}

	for _, token := range strings.Fields(value) {
		key, propValue, found := strings.Cut(token, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("property token (%s): %w", token, ErrMalformedProperty)
		}
		properties[key] = propValue
	}

	return properties, nil
}

// MapKeyToString returns the value for key, or an empty string.
func (c *Handler) MapKeyToString(configMap map[string]string, key string) string {
	if value, exists := configMap[key]; exists {
		return value
	}

	return ""
}

// MapKeyToInt returns the value for key as int, or -1.
func (c *Handler) MapKeyToInt(configMap map[string]string, key string) int {
	value := c.MapKeyToString(configMap, key)
	if value == "" {
		return -1
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return intValue
}

// MapKeyToUInt64 returns the value for key as uint64, or 0.
func (c *Handler) MapKeyToUInt64(configMap map[string]string, key string) uint64 {
	value := c.MapKeyToString(configMap, key)
	if value == "" {
		return 0
	}

	intValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}

	return intValue
}
