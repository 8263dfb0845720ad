package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/doriscore/datareplicator/model"
)

// Memory is an in-process Storage used by tests and local integration
// runs; production deployments use the sqlite- or mysql-backed
// implementations in the top-level storage package.
type Memory struct {
	mu sync.Mutex

	jobs      map[string]string
	progress  map[string]string
	docs      map[model.Namespace][]model.Document
	dropCount int
}

func NewMemory() *Memory {
	return &Memory{
		jobs:     make(map[string]string),
		progress: make(map[string]string),
		docs:     make(map[model.Namespace][]model.Document),
	}
}

func (m *Memory) AddJob(jobName string, info string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[jobName]; exists {
		return ErrJobExists
	}
	m.jobs[jobName] = info
	return nil
}

func (m *Memory) UpdateJob(jobName string, info string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[jobName]; !exists {
		return ErrJobNotExists
	}
	m.jobs[jobName] = info
	return nil
}

func (m *Memory) IsJobExist(jobName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.jobs[jobName]
	return exists, nil
}

func (m *Memory) GetAllJobs() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.jobs))
	for k, v := range m.jobs {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) UpdateProgress(jobName string, progress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[jobName] = progress
	return nil
}

func (m *Memory) IsProgressExist(jobName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.progress[jobName]
	return exists, nil
}

func (m *Memory) GetProgress(jobName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.progress[jobName]
	if !exists {
		return "", ErrJobNotExists
	}
	return p, nil
}

func (m *Memory) DropUserDatabases(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[model.Namespace][]model.Document)
	m.dropCount++
	return nil
}

func (m *Memory) PutCollectionDoc(ctx context.Context, ns model.Namespace, doc model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[ns] = append(m.docs[ns], doc)
	return nil
}

func (m *Memory) InsertMissingDoc(ctx context.Context, ns model.Namespace, doc model.Document) error {
	return m.PutCollectionDoc(ctx, ns, doc)
}

func (m *Memory) ListNamespaceDocs(ctx context.Context, ns model.Namespace) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bodies := make([]string, 0, len(m.docs[ns]))
	for _, doc := range m.docs[ns] {
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, string(b))
	}
	return bodies, nil
}

// Docs returns a copy of everything written for ns, for test assertions.
func (m *Memory) Docs(ns model.Namespace) []model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Document(nil), m.docs[ns]...)
}

// DropCount reports how many times DropUserDatabases ran, for test
// assertions around Resync.
func (m *Memory) DropCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropCount
}
