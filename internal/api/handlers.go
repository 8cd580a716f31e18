package api

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/fetcher"
	"github.com/workbenchdata/twitter-fetch/internal/store"
)

const defaultDataset = "default"

// Server owns the engine and the store and serializes invocations per
// dataset: the engine assumes exclusive access to a dataset's state, so two
// concurrent fetches against the same dataset must queue.
type Server struct {
	engine *fetcher.Engine
	store  *store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewServer(engine *fetcher.Engine, st *store.Store) *Server {
	return &Server{
		engine: engine,
		store:  st,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Server) datasetLock(dataset string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[dataset]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[dataset] = lock
	}
	return lock
}

// handleFetch runs one engine invocation against the named dataset and
// returns the resulting table. Fetch failures are reported in-band next to
// the most recent good table, not as HTTP errors.
func (s *Server) handleFetch(c echo.Context) error {
	var req types.FetchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Dataset == "" {
		req.Dataset = defaultDataset
	}

	lock := s.datasetLock(req.Dataset)
	lock.Lock()
	defer lock.Unlock()

	state, ok, err := s.store.Load(req.Dataset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		state = fetcher.NewState()
	}

	result := s.engine.Run(c.Request().Context(), state, req)

	// Configuration errors never mutate state, so there is nothing to save.
	if result.Err == nil || result.Err.Kind != types.ConfigError {
		if err := s.store.Save(req.Dataset, state); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, types.FetchResponse{
		Dataset:  req.Dataset,
		Rows:     result.Rows,
		RowCount: len(result.Rows),
		Version:  result.Version,
		Changed:  result.Changed,
		Error:    result.Err,
	})
}

// handleGetDataset returns the stored table without fetching.
func (s *Server) handleGetDataset(c echo.Context) error {
	dataset := c.Param("id")

	state, ok, err := s.store.Load(dataset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "dataset not found")
	}

	rows := state.Rows()
	return c.JSON(http.StatusOK, types.FetchResponse{
		Dataset:  dataset,
		Rows:     rows,
		RowCount: len(rows),
		Version:  state.LastVersion,
		Error:    state.LastError,
	})
}

// handleDeleteDataset discards a dataset's accumulated state.
func (s *Server) handleDeleteDataset(c echo.Context) error {
	dataset := c.Param("id")

	lock := s.datasetLock(dataset)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Delete(dataset); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
