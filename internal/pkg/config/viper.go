package config

import (
	"bytes"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper loads configuration from the given file path. The file format is
// inferred from the extension. The file is watched; edits reload in place.
func NewViper(pathFile string) (*Viper, error) {
	v := viper.New()

	filename := path.Base(pathFile)
	configName := filename[:len(filename)-len(path.Ext(filename))]

	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(configName)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "err", err)
			return
		}
		slog.Info("config reloaded", "path", pathFile)
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory; configType is any format
// viper supports ("yaml", "json", ...). Used by tests.
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := viper.New()
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

// GetString returns the value for key as a string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetInt returns the value for key as an int.
func (vc *Viper) GetInt(key string) int {
	return vc.v.GetInt(key)
}

// GetInt32 returns the value for key as an int32.
func (vc *Viper) GetInt32(key string) int32 {
	return vc.v.GetInt32(key)
}

// GetBool returns the value for key as a bool.
func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

// GetFloat64 returns the value for key as a float64.
func (vc *Viper) GetFloat64(key string) float64 {
	return vc.v.GetFloat64(key)
}

// GetArray returns the value for key split on commas.
func (vc *Viper) GetArray(key string) []string {
	return strings.Split(vc.v.GetString(key), ",")
}

// GetSecond returns the value for key as seconds.
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// GetMinute returns the value for key as minutes.
func (vc *Viper) GetMinute(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Minute
}

// Close implements io.Closer for interface completeness.
func (vc *Viper) Close() error {
	return nil
}
