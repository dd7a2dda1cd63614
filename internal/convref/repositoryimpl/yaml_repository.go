package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/deadlinebot/internal/convref"
	"github.com/kazz187/deadlinebot/pkg/cerr"
	"github.com/kazz187/deadlinebot/pkg/storage"
)

const conversationRefsPrefix = "conversation_references"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

// path keys references by email. Emails are lowercased so the same user
// never ends up with two files, and "/" is replaced to keep the key flat.
func path(email string) string {
	key := strings.ToLower(email)
	key = strings.ReplaceAll(key, "/", "_")
	return fmt.Sprintf("%s/%s.yaml", conversationRefsPrefix, key)
}

func (r *YAMLRepository) Upsert(ctx context.Context, ref *convref.ConversationReference) error {
	if ref.Email == "" {
		return cerr.NewError(cerr.InvalidArgument, "conversation reference has no email", nil)
	}
	data, err := yaml.Marshal(ref)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal conversation reference: %w", err))
	}
	if err := r.storage.Write(ctx, path(ref.Email), data); err != nil {
		return cerr.WrapStorageWriteError("conversation_reference", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, email string) (*convref.ConversationReference, error) {
	data, err := r.storage.Read(ctx, path(email))
	if err != nil {
		return nil, cerr.WrapStorageReadError("conversation_reference", err)
	}
	var ref convref.ConversationReference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal conversation reference: %w", err))
	}
	return &ref, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*convref.ConversationReference, error) {
	paths, err := r.storage.List(ctx, conversationRefsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("conversation_references", err)
	}

	sort.Strings(paths)

	var all []*convref.ConversationReference
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var ref convref.ConversationReference
		if err := yaml.Unmarshal(data, &ref); err != nil {
			continue
		}
		all = append(all, &ref)
	}
	return all, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, email string) error {
	if err := r.storage.Delete(ctx, path(email)); err != nil {
		return cerr.WrapStorageDeleteError("conversation_reference", err)
	}
	return nil
}
