package service

import (
	"context"
	"encoding/json"
	"time"

	"docuflow/internal/document/model"
	"docuflow/internal/document/repository"
	"docuflow/pkg/logger"
	"docuflow/socket"
)

const DefaultTimeout = 5 * time.Second

// Publisher receives change events after each successful mutation.
type Publisher interface {
	Publish(msg socket.WSMessage)
}

type DocumentService struct {
	Repo    repository.DocumentRepository
	Hub     Publisher
	Timeout time.Duration
}

// NewDocumentService wires repo and hub together. A nil hub disables events;
// a non-positive timeout falls back to DefaultTimeout.
func NewDocumentService(repo repository.DocumentRepository, hub Publisher, timeout time.Duration) *DocumentService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DocumentService{Repo: repo, Hub: hub, Timeout: timeout}
}

func (s *DocumentService) ListDocuments(ctx context.Context) ([]model.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	return s.Repo.List(ctx)
}

func (s *DocumentService) CreateDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	created, err := s.Repo.Create(ctx, doc)
	if err != nil {
		return model.Document{}, err
	}
	logger.Sugar.Infof("Document saved: %s", created)
	s.publish(socket.CreatedType, created.ID, created)
	return created, nil
}

func (s *DocumentService) DeleteDocument(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Sugar.Infof("Document deleted: %d", id)
	s.publish(socket.DeletedType, id, nil)
	return nil
}

func (s *DocumentService) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.Repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	logger.Sugar.Infof("Document %d status set to %s", id, status)
	s.publish(socket.StatusType, id, map[string]model.Status{"status": status})
	return nil
}

func (s *DocumentService) RenameDocument(ctx context.Context, id int64, title string) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	if err := s.Repo.Rename(ctx, id, title); err != nil {
		return err
	}
	logger.Sugar.Infof("Document %d renamed to %q", id, title)
	s.publish(socket.RenamedType, id, map[string]string{"title": title})
	return nil
}

func (s *DocumentService) publish(eventType string, id int64, payload any) {
	if s.Hub == nil {
		return
	}
	msg := socket.WSMessage{Type: eventType, DocID: id}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Sugar.Errorf("Failed to encode %s event for document %d: %v", eventType, id, err)
			return
		}
		msg.Payload = raw
	}
	s.Hub.Publish(msg)
}
