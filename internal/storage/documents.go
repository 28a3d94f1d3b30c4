package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"go.uber.org/zap"
)

const (
	eventsDocument        = "events.json"
	webhooksDocument      = "webhooks.json"
	notificationsDocument = "notifications.json"
)

// Documents is the durable storage layer: one JSON document per dataset,
// written atomically via a temp file and rename. The in-memory caches stay
// authoritative; these documents only have to survive restarts.
type Documents struct {
	dir    string
	logger *zap.SugaredLogger
}

func NewDocuments(dir string, logger *zap.SugaredLogger) (*Documents, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &Documents{dir: dir, logger: logger}, nil
}

type eventsDoc struct {
	Events       []*model.Event `json:"events"`
	LastModified time.Time      `json:"last_modified"`
}

type webhooksDoc struct {
	Webhooks []*model.Webhook `json:"webhooks"`
}

type notificationsDoc struct {
	Records []model.NotificationRecord `json:"records"`
}

func (d *Documents) SaveEvents(events []*model.Event, lastModified time.Time) error {
	return d.write(eventsDocument, eventsDoc{Events: events, LastModified: lastModified})
}

func (d *Documents) LoadEvents() ([]*model.Event, time.Time, error) {
	var doc eventsDoc
	ok, err := d.read(eventsDocument, &doc)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !ok {
		return nil, time.Time{}, nil
	}

	return doc.Events, doc.LastModified, nil
}

func (d *Documents) SaveWebhooks(webhooks []*model.Webhook) error {
	return d.write(webhooksDocument, webhooksDoc{Webhooks: webhooks})
}

func (d *Documents) LoadWebhooks() ([]*model.Webhook, error) {
	var doc webhooksDoc
	if _, err := d.read(webhooksDocument, &doc); err != nil {
		return nil, err
	}

	return doc.Webhooks, nil
}

func (d *Documents) SaveNotifications(records []model.NotificationRecord) error {
	return d.write(notificationsDocument, notificationsDoc{Records: records})
}

func (d *Documents) LoadNotifications() ([]model.NotificationRecord, error) {
	var doc notificationsDoc
	if _, err := d.read(notificationsDocument, &doc); err != nil {
		return nil, err
	}

	return doc.Records, nil
}

func (d *Documents) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(d.dir, name+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", name, err)
	}

	return nil
}

// read unmarshals a document into dst. A missing document is not an error;
// it reports ok=false so callers can start from an empty dataset.
func (d *Documents) read(name string, dst interface{}) (bool, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", name, err)
	}

	return true, nil
}
