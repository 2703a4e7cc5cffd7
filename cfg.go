package main

import (
	"go.uber.org/zap"

	"github.com/model-collapse/seg-targets/config"
	"github.com/model-collapse/seg-targets/dataset"
	"github.com/model-collapse/seg-targets/logging"
	"github.com/model-collapse/seg-targets/mapper"
)

var GConf *config.Config

// initialize loads the configuration, the dataset records and the mapper.
func initialize(confPath string) (s *server, err error) {
	if GConf, err = config.Load(confPath); err != nil {
		return
	}

	logger, err := logging.New(GConf.Log.Mode)
	if err != nil {
		return
	}

	records, err := dataset.LoadRecords(GConf.Dataset.PanopticJSON, GConf.Dataset.Dirs())
	if err != nil {
		return
	}
	logger.Info("dataset loaded",
		zap.String("path", GConf.Dataset.PanopticJSON),
		zap.Int("records", len(records)))

	mcfg, err := GConf.Mapper.Build()
	if err != nil {
		return
	}

	m, err := mapper.NewMapper(mcfg, mapper.WithLogger(logger))
	if err != nil {
		return
	}

	s = newServer(records, m, logger, GConf.Mapper.ImageFormat == mapper.FormatBGR)
	return
}
