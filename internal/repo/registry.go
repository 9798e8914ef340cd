// Package repo keeps the per-user repository registrations the bot
// resolves aliases and ticket prefixes against.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/burilovmikhail/hermes-claude-bot/pkg/cerr"
	"github.com/burilovmikhail/hermes-claude-bot/pkg/storage"
)

// Registration maps a short alias (and optionally a ticket prefix) to a
// repository for one user.
type Registration struct {
	ID         string    `yaml:"id"`
	UserID     int64     `yaml:"user_id"`
	ShortName  string    `yaml:"short_name"`
	JiraPrefix string    `yaml:"jira_prefix,omitempty"`
	RepoURL    string    `yaml:"repo_url"` // owner/repo
	FullURL    string    `yaml:"full_url"` // https clone URL
	Cloned     bool      `yaml:"cloned"`
	CreatedAt  time.Time `yaml:"created_at"`
	UpdatedAt  time.Time `yaml:"updated_at"`
}

// NormalizeRepoURL reduces any accepted repository reference to the
// owner/repo short form and the https clone URL.
func NormalizeRepoURL(repoURL string) (shortForm, fullURL string) {
	repoURL = strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	if idx := strings.Index(repoURL, "github.com/"); idx >= 0 {
		shortForm = strings.Trim(repoURL[idx+len("github.com/"):], "/")
	} else {
		shortForm = strings.Trim(repoURL, "/")
	}
	return shortForm, fmt.Sprintf("https://github.com/%s.git", shortForm)
}

// Registry is a YAML document store of registrations, one file per
// (user, alias) pair.
type Registry struct {
	storage storage.Storage
}

func NewRegistry(s storage.Storage) *Registry {
	return &Registry{storage: s}
}

func regPath(userID int64, shortName string) string {
	return fmt.Sprintf("repos/%d/%s.yaml", userID, strings.ToLower(shortName))
}

func (r *Registry) Create(ctx context.Context, reg *Registration) error {
	reg.ShortName = strings.ToLower(reg.ShortName)
	exists, err := r.storage.Exists(ctx, regPath(reg.UserID, reg.ShortName))
	if err != nil {
		return cerr.WrapStorageWriteError("repository registration", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("repository %q already registered", reg.ShortName), nil)
	}
	if reg.ID == "" {
		reg.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	return r.write(ctx, reg)
}

func (r *Registry) Get(ctx context.Context, userID int64, shortName string) (*Registration, error) {
	data, err := r.storage.Read(ctx, regPath(userID, shortName))
	if err != nil {
		return nil, cerr.WrapStorageReadError("repository registration", err)
	}
	var reg Registration
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, cerr.NewError(cerr.Internal, "corrupt repository registration", err)
	}
	return &reg, nil
}

// GetByPrefix finds the registration whose ticket prefix matches, for
// resolving "MS-123" style commands with no explicit alias.
func (r *Registry) GetByPrefix(ctx context.Context, userID int64, prefix string) (*Registration, error) {
	regs, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, reg := range regs {
		if strings.EqualFold(reg.JiraPrefix, prefix) {
			return reg, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, fmt.Sprintf("no repository registered for ticket prefix %q", prefix), nil)
}

func (r *Registry) List(ctx context.Context, userID int64) ([]*Registration, error) {
	paths, err := r.storage.List(ctx, fmt.Sprintf("repos/%d", userID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("repository registrations", err)
	}
	var regs []*Registration
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var reg Registration
		if err := yaml.Unmarshal(data, &reg); err != nil {
			continue
		}
		regs = append(regs, &reg)
	}
	return regs, nil
}

// MarkCloned records that the worker finished priming the working copy.
func (r *Registry) MarkCloned(ctx context.Context, userID int64, shortName string, cloned bool) error {
	reg, err := r.Get(ctx, userID, shortName)
	if err != nil {
		return err
	}
	reg.Cloned = cloned
	reg.UpdatedAt = time.Now().UTC()
	return r.write(ctx, reg)
}

func (r *Registry) Delete(ctx context.Context, userID int64, shortName string) error {
	err := r.storage.Delete(ctx, regPath(userID, shortName))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return cerr.NewError(cerr.NotFound, fmt.Sprintf("repository %q is not registered", shortName), err)
		}
		return cerr.WrapStorageDeleteError("repository registration", err)
	}
	return nil
}

func (r *Registry) write(ctx context.Context, reg *Registration) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to encode repository registration", err)
	}
	if err := r.storage.Write(ctx, regPath(reg.UserID, reg.ShortName), data); err != nil {
		return cerr.WrapStorageWriteError("repository registration", err)
	}
	return nil
}
