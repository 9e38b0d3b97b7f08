package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// StatusNeedsReview is the status a review page is opened with.
const StatusNeedsReview = "Needs Review"

// ReviewItem is one admitted report awaiting a reviewer decision.
type ReviewItem struct {
	SHA     string
	Title   string
	URL     string
	Year    int
	Pages   int
	Score   float64
	Summary string
}

// summaryLimit is Notion's maximum length for a single rich text block.
const summaryLimit = 2000

func richText(v string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}},
	}
}

// ReviewProperties converts an item to review database page properties.
// "Name" is the title property and "SHA" identifies the page.
func ReviewProperties(item ReviewItem) notionapi.Properties {
	title := item.Title
	if title == "" {
		title = item.URL
	}
	summary := []rune(item.Summary)
	if len(summary) > summaryLimit {
		summary = summary[:summaryLimit]
	}

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(title),
		},
		"SHA": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(item.SHA),
		},
		"URL": notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  item.URL,
		},
		"Year":  notionapi.NumberProperty{Number: float64(item.Year)},
		"Pages": notionapi.NumberProperty{Number: float64(item.Pages)},
		"Score": notionapi.NumberProperty{Number: item.Score},
		"Status": notionapi.StatusProperty{
			Status: notionapi.Status{Name: StatusNeedsReview},
		},
	}
	if len(summary) > 0 {
		props["Summary"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(string(summary)),
		}
	}
	return props
}

// FindReviewPage returns the page whose SHA property equals sha, or nil.
func FindReviewPage(ctx context.Context, c Client, dbID, sha string) (*notionapi.Page, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "SHA",
			RichText: &notionapi.TextFilterCondition{Equals: sha},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: find review page")
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// UpsertReviewPage opens a review page for item. When a page for the same
// hash already exists it is reset to StatusNeedsReview instead of being
// duplicated. It reports whether a new page was created.
func UpsertReviewPage(ctx context.Context, c Client, dbID string, item ReviewItem) (bool, error) {
	existing, err := FindReviewPage(ctx, c, dbID, item.SHA)
	if err != nil {
		return false, err
	}

	props := ReviewProperties(item)
	if existing != nil {
		if _, err := c.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
			return false, eris.Wrapf(err, "notion: reopen review page for %s", item.SHA)
		}
		return false, nil
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	}
	if _, err := c.CreatePage(ctx, req); err != nil {
		return false, eris.Wrapf(err, "notion: create review page for %s", item.SHA)
	}
	return true, nil
}
