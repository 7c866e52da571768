package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// DotenvReader reads environment-style configuration files with godotenv.
type DotenvReader struct{}

// Read merges the given files into one map (map[key]value), values of later
// files replacing those of earlier ones. Files that do not exist are skipped.
func (*DotenvReader) Read(filenames ...string) (map[string]string, error) {
	envMap := map[string]string{}

	for _, filename := range filenames {
		data, err := godotenv.Read(filename)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Configuration file not found, skipping",
				"file", filename,
			)

			continue
		}
		if err != nil {
			return nil, fmt.Errorf("(config) failed to read %s: %w", filename, err)
		}

		maps.Copy(envMap, data)
	}

	return envMap, nil
}

// ConfigProviderImpl reads configuration files through a generic provider and
// converts their values. Variables set in the process environment take
// precedence over the values read from files.
type ConfigProviderImpl struct {
	GenericConfigReader genericConfigProvider
	LookupEnv           func(key string) (string, bool)
}

// NewConfigProvider returns a pointer to a new [ConfigProviderImpl] reading
// configuration files with godotenv and the environment of the process.
func NewConfigProvider() *ConfigProviderImpl {
	return &ConfigProviderImpl{
		GenericConfigReader: &DotenvReader{},
		LookupEnv:           os.LookupEnv,
	}
}

// ReadGeneric reads the given configuration files into a map (map[key]value).
func (c *ConfigProviderImpl) ReadGeneric(filenames ...string) (envMap map[string]string, err error) {
	return c.GenericConfigReader.Read(filenames...) //nolint:wrapcheck
}

// MapKeyToString returns the value of a key or an empty string.
func (c *ConfigProviderImpl) MapKeyToString(envMap map[string]string, key string) string {
	if c.LookupEnv != nil {
		if value, exists := c.LookupEnv(key); exists {
			return strings.TrimSpace(value)
		}
	}

	if value, exists := envMap[key]; exists {
		return strings.TrimSpace(value)
	}

	return ""
}

// MapKeyToInt returns the value of a key as an integer. The boolean is false
// if the key is unset; a malformed value returns an error.
func (c *ConfigProviderImpl) MapKeyToInt(envMap map[string]string, key string) (int, bool, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return 0, false, nil
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, true, &ValueError{Key: key, Value: value, Err: err}
	}

	return intValue, true, nil
}

// MapKeyToUint64 returns the value of a key as an unsigned integer. The
// boolean is false if the key is unset; a malformed value returns an error.
func (c *ConfigProviderImpl) MapKeyToUint64(envMap map[string]string, key string) (uint64, bool, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return 0, false, nil
	}

	intValue, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, true, &ValueError{Key: key, Value: value, Err: err}
	}

	return intValue, true, nil
}

// MapKeyToBool returns the value of a key as a boolean. The boolean is false
// if the key is unset; a malformed value returns an error.
func (c *ConfigProviderImpl) MapKeyToBool(envMap map[string]string, key string) (bool, bool, error) {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return false, false, nil
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, true, &ValueError{Key: key, Value: value, Err: err}
	}

	return boolValue, true, nil
}
