package main

import (
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/model-collapse/seg-targets/mapper"
)

var errNoRecord = errors.New("no such record")

type server struct {
	records []mapper.DatasetRecord
	mapper  *mapper.Mapper
	log     *zap.Logger
	bgr     bool
}

func newServer(records []mapper.DatasetRecord, m *mapper.Mapper, log *zap.Logger, bgr bool) *server {
	return &server{records: records, mapper: m, log: log, bgr: bgr}
}

func (s *server) randomID(rng *rand.Rand) int {
	return rng.Intn(len(s.records))
}

// mapRecord maps record idx, or a random record when idx < 0.
func (s *server) mapRecord(idx int, seed int64) (*mapper.MappedRecord, error) {
	if len(s.records) == 0 {
		return nil, errNoRecord
	}

	rng := rand.New(rand.NewSource(seed))
	if idx < 0 {
		idx = s.randomID(rng)
	}
	if idx >= len(s.records) {
		return nil, fmt.Errorf("%w: index %d of %d", errNoRecord, idx, len(s.records))
	}

	s.log.Debug("mapping record", zap.Int("index", idx), zap.Int64("seed", seed))
	return s.mapper.MapWithRand(s.records[idx], rng)
}
