package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// ServerEntry associates an RCON port with the server's log file.
type ServerEntry struct {
	Port    int    `yaml:"port"`
	LogFile string `yaml:"log_file,omitempty"`
}

// ServerList is the on-disk server list.  The file is YAML; JSON
// documents such as {"servers": [...]} parse unchanged.
type ServerList struct {
	Servers []ServerEntry `yaml:"servers"`
}

// DefaultServerList is written when no server list exists yet.
func DefaultServerList() *ServerList {
	return &ServerList{Servers: []ServerEntry{
		{Port: DefaultRCONPort, LogFile: "logs/latest.log"},
	}}
}

// LogFileFor returns the first non-empty log file configured for port,
// or "" when the port has no entry.  A nil list has no entries.
func (l *ServerList) LogFileFor(port int) string {
	if l == nil {
		return ""
	}
	for _, s := range l.Servers {
		if s.Port == port && s.LogFile != "" {
			return s.LogFile
		}
	}
	return ""
}

// LoadServers reads the server list at path.  When the file does not
// exist a default one is written and created is true.
func LoadServers(path string) (list *ServerList, created bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		list = DefaultServerList()
		if err := SaveServers(path, list); err != nil {
			return nil, false, err
		}
		return list, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading server list: %w", err)
	}

	list = &ServerList{}
	if err := yaml.Unmarshal(data, list); err != nil {
		return nil, false, fmt.Errorf("parsing server list %s: %w", path, err)
	}
	for i, s := range list.Servers {
		if s.Port < 1 || s.Port > 65535 {
			return nil, false, fmt.Errorf("server list %s: entry %d: port %d out of range 1-65535", path, i, s.Port)
		}
	}
	return list, false, nil
}

// SaveServers writes list to path, creating parent directories.
func SaveServers(path string, list *ServerList) error {
	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding server list: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing server list: %w", err)
	}
	return nil
}
