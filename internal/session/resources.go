package session

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// PreviewLimit is how many characters of the data file the banner shows.
const PreviewLimit = 500

// Resources are the two grounding files, read in full.
type Resources struct {
	DataPath   string
	PolicyPath string
	Data       string
	Policy     string
}

// LoadResources reads the data and policy files. A missing file is an error.
func LoadResources(dataPath, policyPath string) (Resources, error) {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return Resources{}, fmt.Errorf("read %s: %w", dataPath, err)
	}
	policy, err := os.ReadFile(policyPath)
	if err != nil {
		return Resources{}, fmt.Errorf("read %s: %w", policyPath, err)
	}
	return Resources{
		DataPath:   dataPath,
		PolicyPath: policyPath,
		Data:       string(data),
		Policy:     string(policy),
	}, nil
}

// Preview returns the first n characters of s, with "..." when cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
