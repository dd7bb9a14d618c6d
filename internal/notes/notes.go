// Package notes is a small in-memory note service exposed through the
// router. It backs the demo application of cmd/httpserver.
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/rs/xid"

	"github.com/Brownie44l1/slowserve/internal/response"
	"github.com/Brownie44l1/slowserve/internal/router"
)

var (
	ErrNotFound     = errors.New("note not found")
	ErrEmptyTitle   = errors.New("note title is empty")
	ErrTitleTooLong = errors.New("note title too long")
)

const maxTitleLen = 50

// Note is one stored note
type Note struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Input is the body accepted by create and update
type Input struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (in Input) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return ErrEmptyTitle
	case len(in.Title) > maxTitleLen:
		return ErrTitleTooLong
	}
	return nil
}

// Store keeps notes in insertion order. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	notes map[string]*Note
	order []string
}

func NewStore() *Store {
	return &Store{notes: make(map[string]*Note)}
}

func (s *Store) Create(in Input) (Note, error) {
	if err := in.validate(); err != nil {
		return Note{}, err
	}

	n := &Note{ID: xid.New().String(), Title: in.Title, Text: in.Text}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ID] = n
	s.order = append(s.order, n.ID)
	return *n, nil
}

func (s *Store) Get(id string) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *n, nil
}

// List returns every note whose title contains filter, oldest first.
func (s *Store) List(filter string) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Note, 0, len(s.order))
	for _, id := range s.order {
		n := s.notes[id]
		if filter == "" || strings.Contains(strings.ToLower(n.Title), strings.ToLower(filter)) {
			out = append(out, *n)
		}
	}
	return out
}

func (s *Store) Update(id string, in Input) (Note, error) {
	if err := in.validate(); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n.Title = in.Title
	n.Text = in.Text
	return *n, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.notes, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// Register mounts the note routes on r:
//
//	GET    /notes          list, ?q= filters by title
//	POST   /notes          create
//	GET    /notes/{id}     fetch
//	PATCH  /notes/{id}     update
//	DELETE /notes/{id}     delete
func Register(r *router.Router, s *Store) {
	r.GET("/notes", s.handleList)
	r.POST("/notes", s.handleCreate)
	r.GET("/notes/{id}", s.handleGet)
	r.PATCH("/notes/{id}", s.handleUpdate)
	r.DELETE("/notes/{id}", s.handleDelete)
}

func (s *Store) handleList(req *router.Request, _ ...string) (*router.Response, error) {
	return router.JSON(response.StatusOK, s.List(req.Query["q"]))
}

func (s *Store) handleCreate(req *router.Request, _ ...string) (*router.Response, error) {
	in, err := decodeInput(req.Body)
	if err != nil {
		return router.Text(response.StatusBadRequest, err.Error()), nil
	}

	n, err := s.Create(in)
	if err != nil {
		return router.Text(response.StatusUnprocessableEntity, err.Error()), nil
	}

	resp, err := router.JSON(response.StatusCreated, n)
	if err != nil {
		return nil, err
	}
	resp.SetHeader("Location", "/notes/"+n.ID)
	return resp, nil
}

func (s *Store) handleGet(_ *router.Request, args ...string) (*router.Response, error) {
	id, ok := singleID(args)
	if !ok {
		return router.Text(response.StatusBadRequest, "expected one note id"), nil
	}

	n, err := s.Get(id)
	if err != nil {
		return router.Text(response.StatusNotFound, err.Error()), nil
	}
	return router.JSON(response.StatusOK, n)
}

func (s *Store) handleUpdate(req *router.Request, args ...string) (*router.Response, error) {
	id, ok := singleID(args)
	if !ok {
		return router.Text(response.StatusBadRequest, "expected one note id"), nil
	}

	in, err := decodeInput(req.Body)
	if err != nil {
		return router.Text(response.StatusBadRequest, err.Error()), nil
	}

	n, err := s.Update(id, in)
	switch {
	case errors.Is(err, ErrNotFound):
		return router.Text(response.StatusNotFound, err.Error()), nil
	case err != nil:
		return router.Text(response.StatusUnprocessableEntity, err.Error()), nil
	}
	return router.JSON(response.StatusOK, n)
}

func (s *Store) handleDelete(_ *router.Request, args ...string) (*router.Response, error) {
	id, ok := singleID(args)
	if !ok {
		return router.Text(response.StatusBadRequest, "expected one note id"), nil
	}

	if err := s.Delete(id); err != nil {
		return router.Text(response.StatusNotFound, err.Error()), nil
	}
	return router.Status(response.StatusNoContent), nil
}

func singleID(args []string) (string, bool) {
	if len(args) != 1 || args[0] == "" {
		return "", false
	}
	return args[0], true
}

func decodeInput(body io.Reader) (Input, error) {
	var in Input
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return Input{}, fmt.Errorf("invalid note body: %w", err)
	}
	return in, nil
}
