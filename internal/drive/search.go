package drive

import (
	"context"
	"fmt"
	"strings"
)

const FolderMime = "application/vnd.google-apps.folder"

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	WebViewLink  string `json:"webViewLink,omitempty"`
}

// Lister runs a Drive files.list query, newest first.
type Lister interface {
	List(ctx context.Context, q string, pageSize int) ([]File, error)
}

func esc(s string) string { return strings.ReplaceAll(s, "'", `\'`) }

func nameContains(terms []string, field string) string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = fmt.Sprintf("%s contains '%s'", field, esc(t))
	}
	return strings.Join(out, " or ")
}

// SearchPasses relaxes the query until something matches:
// client plus every token, client plus any token, preferred folders,
// synonyms and finally full text.
func SearchPasses(ctx context.Context, l Lister, client, docType string, r Rules, pageSize int) ([]File, error) {
	nm := r.Naming[docType]
	syns := r.Synonyms[docType]

	mimeQ := ""
	if len(nm.MimeTypes) > 0 {
		parts := make([]string, len(nm.MimeTypes))
		for i, mt := range nm.MimeTypes {
			parts[i] = fmt.Sprintf("mimeType = '%s'", esc(mt))
		}
		mimeQ = "(" + strings.Join(parts, " or ") + ") and "
	}
	clientQ := fmt.Sprintf("name contains '%s'", esc(client))

	must := []string{clientQ}
	for _, t := range nm.Tokens {
		must = append(must, fmt.Sprintf("name contains '%s'", esc(t)))
	}
	res, err := l.List(ctx, mimeQ+strings.Join(must, " and ")+" and trashed=false", pageSize)
	if err != nil || len(res) > 0 {
		return res, err
	}

	if len(nm.Tokens) > 0 {
		q := fmt.Sprintf("%s%s and (%s) and trashed=false", mimeQ, clientQ, nameContains(nm.Tokens, "name"))
		if res, err = l.List(ctx, q, pageSize); err != nil || len(res) > 0 {
			return res, err
		}
	}

	if len(nm.FolderNames) > 0 {
		ids, err := FindFolders(ctx, l, nm.FolderNames)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			parents := make([]string, len(ids))
			for i, id := range ids {
				parents[i] = fmt.Sprintf("'%s' in parents", id)
			}
			anyTok := "name contains ''"
			if len(nm.Tokens) > 0 {
				anyTok = nameContains(nm.Tokens, "name")
			}
			q := fmt.Sprintf("%s(%s) and %s and (%s) and trashed=false", mimeQ, strings.Join(parents, " or "), clientQ, anyTok)
			if res, err = l.List(ctx, q, pageSize); err != nil || len(res) > 0 {
				return res, err
			}
		}
	}

	if len(syns) > 0 {
		q := fmt.Sprintf("%s%s and (%s) and trashed=false", mimeQ, clientQ, nameContains(syns, "name"))
		if res, err = l.List(ctx, q, pageSize); err != nil || len(res) > 0 {
			return res, err
		}
	}

	terms := nm.Tokens
	if len(terms) == 0 {
		terms = syns
	}
	if len(terms) == 0 {
		terms = []string{docType}
	}
	q := fmt.Sprintf("%s%s and (%s) and trashed=false", mimeQ, clientQ, nameContains(terms, "fullText"))
	return l.List(ctx, q, pageSize)
}

// FindFolders returns the ids of folders whose name contains any of names,
// deduplicated in first-seen order.
func FindFolders(ctx context.Context, l Lister, names []string) ([]string, error) {
	var ids []string
	seen := map[string]bool{}
	for _, n := range names {
		q := fmt.Sprintf("mimeType = '%s' and name contains '%s' and trashed=false", FolderMime, esc(n))
		files, err := l.List(ctx, q, 10)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !seen[f.ID] {
				seen[f.ID] = true
				ids = append(ids, f.ID)
			}
		}
	}
	return ids, nil
}
