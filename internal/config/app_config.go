// Package config loads layered application configuration: a global file in
// the user configuration directory overlaid by a local file in the working
// directory. Fields are pointer-typed where a file must be able to override
// a built-in default in either direction.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"treels/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds file-provided defaults for the CLI flags.
type ApplicationConfiguration struct {
	Walk    WalkConfiguration    `mapstructure:"walk"`
	Display DisplayConfiguration `mapstructure:"display"`
}

// WalkConfiguration defaults the traversal options.
type WalkConfiguration struct {
	All            *bool  `mapstructure:"all"`
	DirsOnly       *bool  `mapstructure:"dirs_only"`
	Level          *int   `mapstructure:"level"`
	Pattern        string `mapstructure:"pattern"`
	Exclude        string `mapstructure:"exclude"`
	FollowSymlinks *bool  `mapstructure:"follow_symlinks"`
	DirsFirst      *bool  `mapstructure:"dirs_first"`
	Sort           string `mapstructure:"sort"`
	Prune          *bool  `mapstructure:"prune"`
	FileLimit      *int   `mapstructure:"filelimit"`
}

// DisplayConfiguration defaults the rendering options.
type DisplayConfiguration struct {
	FullPath    *bool  `mapstructure:"full_path"`
	Classify    *bool  `mapstructure:"classify"`
	Indent      *bool  `mapstructure:"indent"`
	Size        *bool  `mapstructure:"size"`
	Human       *bool  `mapstructure:"human"`
	Permissions *bool  `mapstructure:"permissions"`
	User        *bool  `mapstructure:"user"`
	Group       *bool  `mapstructure:"group"`
	Inodes      *bool  `mapstructure:"inodes"`
	Device      *bool  `mapstructure:"device"`
	Modified    *bool  `mapstructure:"modified"`
	Report      *bool  `mapstructure:"report"`
	Output      string `mapstructure:"output"`
	Copy        *bool  `mapstructure:"copy"`
}

// LoadApplicationConfiguration loads configuration from the global and local
// files, local values winning over global ones. Missing files are not an
// error.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfiguration, loadError := loadConfigurationFromPath(globalPath)
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(globalConfiguration)
	}

	localPath := options.ExplicitFilePath
	if localPath == "" {
		localPath = filepath.Join(workingDirectory, utils.ConfigFileName)
	} else if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(workingDirectory, localPath)
	}
	localConfiguration, loadError := loadConfigurationFromPath(localPath)
	if loadError != nil {
		return ApplicationConfiguration{}, loadError
	}
	merged = merged.Merge(localConfiguration)

	return merged, nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	info, statError := os.Stat(path)
	if statError != nil {
		if os.IsNotExist(statError) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statError)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readError := reader.ReadInConfig(); readError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	var configuration ApplicationConfiguration
	if decodeError := reader.Unmarshal(&configuration); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeError)
	}
	return configuration, nil
}

// Merge overlays override onto the receiver returning the combined
// configuration.
func (configuration ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := configuration
	result.Walk = result.Walk.merge(override.Walk)
	result.Display = result.Display.merge(override.Display)
	return result
}

func (configuration WalkConfiguration) merge(override WalkConfiguration) WalkConfiguration {
	result := configuration
	if override.All != nil {
		result.All = cloneBool(override.All)
	}
	if override.DirsOnly != nil {
		result.DirsOnly = cloneBool(override.DirsOnly)
	}
	if override.Level != nil {
		result.Level = cloneInt(override.Level)
	}
	if override.Pattern != "" {
		result.Pattern = override.Pattern
	}
	if override.Exclude != "" {
		result.Exclude = override.Exclude
	}
	if override.FollowSymlinks != nil {
		result.FollowSymlinks = cloneBool(override.FollowSymlinks)
	}
	if override.DirsFirst != nil {
		result.DirsFirst = cloneBool(override.DirsFirst)
	}
	if override.Sort != "" {
		result.Sort = override.Sort
	}
	if override.Prune != nil {
		result.Prune = cloneBool(override.Prune)
	}
	if override.FileLimit != nil {
		result.FileLimit = cloneInt(override.FileLimit)
	}
	return result
}

func (configuration DisplayConfiguration) merge(override DisplayConfiguration) DisplayConfiguration {
	result := configuration
	if override.FullPath != nil {
		result.FullPath = cloneBool(override.FullPath)
	}
	if override.Classify != nil {
		result.Classify = cloneBool(override.Classify)
	}
	if override.Indent != nil {
		result.Indent = cloneBool(override.Indent)
	}
	if override.Size != nil {
		result.Size = cloneBool(override.Size)
	}
	if override.Human != nil {
		result.Human = cloneBool(override.Human)
	}
	if override.Permissions != nil {
		result.Permissions = cloneBool(override.Permissions)
	}
	if override.User != nil {
		result.User = cloneBool(override.User)
	}
	if override.Group != nil {
		result.Group = cloneBool(override.Group)
	}
	if override.Inodes != nil {
		result.Inodes = cloneBool(override.Inodes)
	}
	if override.Device != nil {
		result.Device = cloneBool(override.Device)
	}
	if override.Modified != nil {
		result.Modified = cloneBool(override.Modified)
	}
	if override.Report != nil {
		result.Report = cloneBool(override.Report)
	}
	if override.Output != "" {
		result.Output = override.Output
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
