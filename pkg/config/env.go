// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const envKeyPrefix = "XTRAQ_"

// loadEnvFile parses path with godotenv and retains only XTRAQ_* keys. A
// missing file yields an empty, error-free map. A present file containing
// no XTRAQ_* key is EnvFileMissingMarkerError.
func loadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	parsed, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	for k, v := range parsed {
		if strings.HasPrefix(k, envKeyPrefix) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil, &EnvFileMissingMarkerError{Path: path}
	}
	return out, nil
}

// processEnv returns every XTRAQ_* variable currently set in the process
// environment.
func processEnv() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, envKeyPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}
