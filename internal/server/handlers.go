package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	kstat "github.com/illumos/go-kstat"
)

// parseInstance accepts "*", -1 or a non-negative instance number.
func parseInstance(s string) (int, error) {
	if s == "*" {
		return kstat.AnyInstance, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < kstat.AnyInstance {
		return 0, fmt.Errorf("invalid instance %q", s)
	}
	return n, nil
}

func wildcard(s string) string {
	if s == "*" {
		return ""
	}
	return s
}

func (s *Server) badInstance(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false,
		map[string]any{"instance": r.PathValue("instance")})
}

// handleGet looks up one kstat. A kstat that doesn't exist is still a
// 200, with an error of "invalid kstat" in the record.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	inst, err := parseInstance(r.PathValue("instance"))
	if err != nil {
		s.badInstance(w, r, err)
		return
	}
	rec, err := s.reader.Lookup(wildcard(r.PathValue("module")), inst, wildcard(r.PathValue("name")))
	if err != nil {
		s.writeKstatError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleMultiGet reads module:instance:name for each of the names,
// each through a Reader of its own, and returns the records by name.
func (s *Server) handleMultiGet(w http.ResponseWriter, r *http.Request) {
	inst, err := parseInstance(r.PathValue("instance"))
	if err != nil {
		s.badInstance(w, r, err)
		return
	}
	module := wildcard(r.PathValue("module"))

	results := make(map[string][]kstat.Record)
	for _, name := range strings.Split(r.PathValue("names"), ";") {
		if name == "" {
			continue
		}
		recs, err := s.readOne(kstat.Filter{Module: module, Name: name, Instance: inst})
		if err != nil {
			s.writeKstatError(w, r, err)
			return
		}
		if recs == nil {
			recs = []kstat.Record{}
		}
		results[name] = recs
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) readOne(f kstat.Filter) ([]kstat.Record, error) {
	rd, err := s.open(f)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rd.Close(); err != nil {
			s.log.Warn("failed to close reader", slog.String("filter", f.String()), slog.String("error", err.Error()))
		}
	}()
	return rd.Read()
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ks, err := s.reader.List()
	if err != nil {
		s.writeKstatError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ks)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	recs, err := s.reader.Read()
	if err != nil {
		s.writeKstatError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

// handleChainUpdate answers 0 if the chain could be updated (whether
// or not it changed) and -1 if not, as jkstat clients expect.
func (s *Server) handleChainUpdate(w http.ResponseWriter, r *http.Request) {
	ch, err := s.reader.Update()
	if err != nil {
		s.log.Warn("kstat chain update failed", slog.String("error", err.Error()))
		respondJSON(w, http.StatusOK, -1)
		return
	}
	s.log.Debug("kstat chain updated", slog.String("change", ch.String()))
	respondJSON(w, http.StatusOK, 0)
}

func (s *Server) handleChainID(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.reader.ChainID())
}
