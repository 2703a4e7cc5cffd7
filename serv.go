package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	http "github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/model-collapse/seg-targets/mapper"
)

type requestArgs struct {
	index int
	seed  int64
	task  string
	box   bool
}

func parseArgs(c *http.RequestCtx) (a requestArgs) {
	args := c.URI().QueryArgs()

	a.index = -1
	if args.Has("index") {
		a.index = args.GetUintOrZero("index")
	}

	a.seed = time.Now().UnixNano()
	if seed, err := args.GetUint("seed"); err == nil {
		a.seed = int64(seed)
	}

	a.task = string(args.Peek("task"))
	a.box = string(args.Peek("box")) == "true"
	return
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoRecord):
		return http.StatusNotFound
	case errors.Is(err, mapper.ErrContractViolation),
		errors.Is(err, mapper.ErrInputIntegrity),
		errors.Is(err, mapper.ErrMalformedSegments):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

func (s *server) fail(c *http.RequestCtx, err error) {
	s.log.Warn("request failed", zap.ByteString("uri", c.RequestURI()), zap.Error(err))
	c.Error(err.Error(), statusFor(err))
}

func (s *server) handleTargets(c *http.RequestCtx) {
	a := parseArgs(c)
	r, err := s.mapRecord(a.index, a.seed)
	if err != nil {
		s.fail(c, err)
		return
	}

	data, err := json.Marshal(mapper.Summarize(r))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.SetContentType("application/json")
	c.Write(data)
}

func (s *server) handleRender(c *http.RequestCtx) {
	a := parseArgs(c)
	if _, err := pickBundle(&mapper.MappedRecord{}, a.task); err != nil {
		c.Error(err.Error(), http.StatusBadRequest)
		return
	}

	r, err := s.mapRecord(a.index, a.seed)
	if err != nil {
		s.fail(c, err)
		return
	}

	data, err := renderTargets(r, a.task, a.box, s.bgr)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.SetContentType("image/png")
	c.Write(data)
}

func (s *server) handle(c *http.RequestCtx) {
	switch string(c.Path()) {
	case "/targets":
		s.handleTargets(c)
	case "/render":
		s.handleRender(c)
	default:
		c.Error("not found", http.StatusNotFound)
	}
}

func main() {
	confPath := flag.String("conf", "./conf.json", "path to the configuration file")
	flag.Parse()

	s, err := initialize(*confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer s.log.Sync()

	s.log.Info("serving", zap.String("addr", GConf.Server.Addr))
	if err := http.ListenAndServe(GConf.Server.Addr, s.handle); err != nil {
		s.log.Fatal("server stopped", zap.Error(err))
	}
}
