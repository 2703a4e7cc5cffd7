package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/model-collapse/seg-targets/augment"
	"github.com/model-collapse/seg-targets/dataset"
	"github.com/model-collapse/seg-targets/mapper"
)

type Config struct {
	Mapper  MapperConfig  `mapstructure:"mapper"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	// Workers is the size of the batch extraction pool.
	Workers int `mapstructure:"workers"`
}

type MapperConfig struct {
	IsTrain          bool           `mapstructure:"is_train"`
	ImageFormat      string         `mapstructure:"image_format"`
	IgnoreLabel      int            `mapstructure:"ignore_label"`
	SizeDivisibility int            `mapstructure:"size_divisibility"`
	Augmentations    []augment.Spec `mapstructure:"augmentations"`
}

type DatasetConfig struct {
	PanopticJSON string `mapstructure:"panoptic_json"`
	ImageDir     string `mapstructure:"image_dir"`
	PanopticDir  string `mapstructure:"panoptic_dir"`
	SemanticDir  string `mapstructure:"semantic_dir"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mapper.is_train", true)
	v.SetDefault("mapper.image_format", mapper.FormatRGB)
	v.SetDefault("mapper.ignore_label", 255)
	v.SetDefault("mapper.size_divisibility", -1)
	v.SetDefault("server.addr", "0.0.0.0:8093")
	v.SetDefault("log.mode", "debug")
	v.SetDefault("workers", 10)
}

// Load reads the configuration file at path. JSON and YAML are accepted.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	f := c.Mapper.ImageFormat
	if f == mapper.FormatRaw || !mapper.ValidFormat(f) {
		return fmt.Errorf("mapper.image_format %q is not one of RGB, BGR, L", f)
	}
	if c.Dataset.PanopticJSON == "" {
		return fmt.Errorf("dataset.panoptic_json is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}

	return nil
}

// Build resolves the augmentation specs into a mapper.Config.
func (c *MapperConfig) Build() (mapper.Config, error) {
	augs, err := augment.Build(c.Augmentations)
	if err != nil {
		return mapper.Config{}, err
	}

	return mapper.Config{
		IsTrain:          c.IsTrain,
		ImageFormat:      c.ImageFormat,
		IgnoreLabel:      c.IgnoreLabel,
		SizeDivisibility: c.SizeDivisibility,
		Augmentations:    augs,
	}, nil
}

func (d *DatasetConfig) Dirs() dataset.Dirs {
	return dataset.Dirs{
		ImageDir:    d.ImageDir,
		PanopticDir: d.PanopticDir,
		SemanticDir: d.SemanticDir,
	}
}
