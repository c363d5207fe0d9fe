package mastodon

import (
	"context"

	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

// listLoader manages the account's Mastodon lists. The lists endpoint
// is unpaged, so every Load is a full reload.
type listLoader struct {
	source *DataSource
}

// ListLoader returns the list manager for this account
func (d *DataSource) ListLoader() microblog.ListLoader {
	return &listLoader{source: d}
}

func (l *listLoader) pagingKey() string {
	return "lists_" + l.source.accountKey.String()
}

// SupportedMetaData reports that Mastodon lists only carry a title
func (l *listLoader) SupportedMetaData() []microblog.ListMetaDataType {
	return []microblog.ListMetaDataType{microblog.ListMetaTitle}
}

func (l *listLoader) Load(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind != microblog.Refresh {
		return microblog.Result{EndOfPagination: true}, nil
	}
	lists, err := l.source.client.Lists(ctx)
	if err != nil {
		return microblog.Result{}, err
	}
	entries := make([]store.ListEntry, 0, len(lists))
	for _, list := range lists {
		entries = append(entries, l.source.mapList(list))
	}
	if err := l.source.store.SaveListPage(ctx, l.source.accountKey, l.pagingKey(), entries, true); err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{EndOfPagination: true, Count: len(entries)}, nil
}

func (l *listLoader) Create(ctx context.Context, meta microblog.ListMetaData) error {
	list, err := l.source.client.CreateList(ctx, meta.Title)
	if err != nil {
		return err
	}
	return l.source.store.SaveList(ctx, l.source.accountKey, l.source.mapList(*list))
}

func (l *listLoader) Update(ctx context.Context, listID string, meta microblog.ListMetaData) error {
	list, err := l.source.client.UpdateList(ctx, listID, meta.Title)
	if err != nil {
		return err
	}
	return l.source.store.SaveList(ctx, l.source.accountKey, l.source.mapList(*list))
}

func (l *listLoader) Delete(ctx context.Context, listID string) error {
	if err := l.source.client.DeleteList(ctx, listID); err != nil {
		return err
	}
	return l.source.store.DeleteList(ctx, l.source.accountKey, model.NewKey(listID, l.source.accountKey.Host))
}

func (l *listLoader) AddMember(ctx context.Context, listID, userID string) error {
	return l.source.client.AddListAccounts(ctx, listID, []string{userID})
}

func (l *listLoader) RemoveMember(ctx context.Context, listID, userID string) error {
	return l.source.client.RemoveListAccounts(ctx, listID, []string{userID})
}
