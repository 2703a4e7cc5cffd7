package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/model-collapse/seg-targets/config"
	"github.com/model-collapse/seg-targets/dataset"
	"github.com/model-collapse/seg-targets/logging"
	"github.com/model-collapse/seg-targets/mapper"
)

type job struct {
	index int
	rec   mapper.DatasetRecord
}

type extractor struct {
	m      *mapper.Mapper
	out    string
	seed   int64
	render bool
	bgr    bool
	log    *zap.Logger
}

func (e *extractor) extract(j job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic = %v, stack = %s", p, debug.Stack())
		}
	}()

	rng := rand.New(rand.NewSource(e.seed + int64(j.index)))
	r, err := e.m.MapWithRand(j.rec, rng)
	if err != nil {
		return err
	}

	return writeOutputs(e.out, stem(j.rec), r, e.render, e.bgr)
}

// run maps every record with n workers and returns the number of failures.
func (e *extractor) run(records []mapper.DatasetRecord, n int) (failed int) {
	chJob := make(chan job, 100)
	go func() {
		for i, rec := range records {
			chJob <- job{index: i, rec: rec}
		}

		close(chJob)
	}()

	var mu sync.Mutex
	wg := sync.WaitGroup{}
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			for j := range chJob {
				if err := e.extract(j); err != nil {
					e.log.Warn("record failed", zap.String("image_id", j.rec.ImageID), zap.Error(err))
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}

			wg.Done()
		}()
	}

	wg.Wait()
	return
}

func stem(rec mapper.DatasetRecord) string {
	base := filepath.Base(rec.FileName)
	return base[:len(base)-len(filepath.Ext(base))]
}

func main() {
	confPath := flag.String("conf", "./conf.json", "path to the configuration file")
	outDir := flag.String("out", "targets", "output directory")
	seed := flag.Int64("seed", 0, "base seed for augmentation sampling")
	render := flag.Bool("render", false, "also write PNG overlays")
	flag.Parse()

	conf, err := config.Load(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Log.Mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	records, err := dataset.LoadRecords(conf.Dataset.PanopticJSON, conf.Dataset.Dirs())
	if err != nil {
		logger.Fatal("load dataset", zap.Error(err))
	}

	mcfg, err := conf.Mapper.Build()
	if err != nil {
		logger.Fatal("build mapper config", zap.Error(err))
	}
	m, err := mapper.NewMapper(mcfg, mapper.WithLogger(logger))
	if err != nil {
		logger.Fatal("create mapper", zap.Error(err))
	}

	out := filepath.Join(*outDir, uuid.NewString())
	if err := os.MkdirAll(out, 0o755); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}

	logger.Info("extracting",
		zap.Int("records", len(records)),
		zap.Int("workers", conf.Workers),
		zap.String("out", out))

	e := &extractor{
		m:      m,
		out:    out,
		seed:   *seed,
		render: *render,
		bgr:    conf.Mapper.ImageFormat == mapper.FormatBGR,
		log:    logger,
	}
	failed := e.run(records, conf.Workers)

	logger.Info("done", zap.Int("records", len(records)), zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(2)
	}
}
