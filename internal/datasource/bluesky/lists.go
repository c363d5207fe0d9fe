package bluesky

import (
	"context"

	"github.com/DimensionDev/Flare-sub003/internal/db"
	"github.com/DimensionDev/Flare-sub003/internal/microblog"
	"github.com/DimensionDev/Flare-sub003/internal/model"
	"github.com/DimensionDev/Flare-sub003/internal/store"
)

// listLoader manages the viewer's graph lists. Lists are repo records:
// creation and membership go through createRecord, deletion through
// deleteRecord. Record rewrites (rename, member removal by user id)
// have no single-call equivalent and report unsupported.
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

// SupportedMetaData reports that graph lists carry name, description
// and avatar.
func (l *listLoader) SupportedMetaData() []microblog.ListMetaDataType {
	return []microblog.ListMetaDataType{
		microblog.ListMetaTitle,
		microblog.ListMetaDescription,
		microblog.ListMetaAvatar,
	}
}

func (l *listLoader) Load(ctx context.Context, pageSize int, req microblog.Request) (microblog.Result, error) {
	if req.Kind == microblog.Prepend {
		return microblog.Result{EndOfPagination: true}, nil
	}
	cursor := ""
	if req.Kind == microblog.Append {
		cursor = req.Cursor
	}
	lists, next, err := l.source.client.GetLists(ctx, l.source.client.DID(), cursor, pageSize)
	if err != nil {
		return microblog.Result{}, err
	}
	entries := make([]store.ListEntry, 0, len(lists))
	for _, list := range lists {
		entries = append(entries, l.source.mapList(list))
	}
	err = l.source.store.SaveListPage(ctx, l.source.accountKey, l.pagingKey(), entries, req.Kind == microblog.Refresh)
	if err != nil {
		return microblog.Result{}, err
	}
	return microblog.Result{
		NextCursor:      next,
		EndOfPagination: len(lists) == 0 || next == "",
		Count:           len(entries),
	}, nil
}

func (l *listLoader) Create(ctx context.Context, meta microblog.ListMetaData) error {
	record := map[string]interface{}{
		"purpose": "app.bsky.graph.defs#curatelist",
		"name":    meta.Title,
	}
	if meta.Description != "" {
		record["description"] = meta.Description
	}
	ref, err := l.source.client.CreateRecord(ctx, "app.bsky.graph.list", record)
	if err != nil {
		return err
	}
	return l.source.store.SaveList(ctx, l.source.accountKey, store.ListEntry{
		ListKey: model.NewKey(ref.URI, l.source.accountKey.Host),
		Content: db.ListContent{
			ID:          ref.URI,
			Title:       meta.Title,
			Description: meta.Description,
			AvatarURL:   meta.AvatarURL,
		},
	})
}

func (l *listLoader) Update(ctx context.Context, listID string, meta microblog.ListMetaData) error {
	return &microblog.UnsupportedError{Operation: "list update", Platform: "bluesky"}
}

func (l *listLoader) Delete(ctx context.Context, listID string) error {
	if err := l.source.client.DeleteRecord(ctx, listID); err != nil {
		return err
	}
	return l.source.store.DeleteList(ctx, l.source.accountKey, model.NewKey(listID, l.source.accountKey.Host))
}

func (l *listLoader) AddMember(ctx context.Context, listID, userID string) error {
	_, err := l.source.client.CreateRecord(ctx, "app.bsky.graph.listitem", map[string]interface{}{
		"list":    listID,
		"subject": userID,
	})
	return err
}

func (l *listLoader) RemoveMember(ctx context.Context, listID, userID string) error {
	return &microblog.UnsupportedError{Operation: "list member removal", Platform: "bluesky"}
}
