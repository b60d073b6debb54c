package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load overlays the YAML file at filePath onto config. ${VAR} references in
// the file are replaced with environment values before parsing.
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the --config flag
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Save writes config to filePath as YAML.
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables starting with prefix onto target.
// The first segment after the prefix names the section and the remainder the
// key, so TENDERFLOW_EXPORT_BATCH_SIZE sets export.batch_size.
func ApplyEnv(prefix string, target interface{}) error {
	v := viper.New()

	prefixUpper := strings.ToUpper(prefix)
	found := false
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], prefixUpper) {
			continue
		}

		propKey := strings.ToLower(strings.TrimPrefix(pair[0], prefixUpper))
		propKey = strings.TrimPrefix(propKey, "_")
		section, key, ok := strings.Cut(propKey, "_")
		if !ok || section == "" || key == "" {
			continue
		}

		// publish has one nested level: TENDERFLOW_PUBLISH_S3_BUCKET
		if section == "publish" {
			if sub, rest, nested := strings.Cut(key, "_"); nested {
				key = sub + "." + rest
			}
		}

		v.Set(section+"."+key, pair[1])
		found = true
	}

	if !found {
		return nil
	}
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal environment overrides: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		content = content[:start] + os.Getenv(varName) + content[end+1:]
	}
	return content
}
