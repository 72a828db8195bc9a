package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/farm-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// NotionService defines the subset of the Notion API the sink uses.
// This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
}

// NotionClient is the concrete implementation of NotionService using the Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a new NotionClient with the provided API token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// CreatePage creates a new page in a Notion database with the given properties.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}

	return page, nil
}

// NotionSink adds one page per confirmed transaction to a Notion database.
type NotionSink struct {
	service    NotionService
	databaseID string
}

// NewNotionSink creates a sink writing to databaseID.
func NewNotionSink(service NotionService, databaseID string) *NotionSink {
	return &NotionSink{service: service, databaseID: databaseID}
}

// Name implements Sink.
func (s *NotionSink) Name() string {
	return "notion"
}

// Record implements Sink.
func (s *NotionSink) Record(ctx context.Context, tx domain.Transaction) error {
	if _, err := s.service.CreatePage(ctx, s.databaseID, TransactionToNotionProperties(tx)); err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// TransactionToNotionProperties converts a transaction to Notion database properties.
// The title is the item, or the category label when there is no item.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	title := tx.Item
	if title == "" {
		title = tx.Category.Label()
	}

	amount, _ := tx.Amount.Float64()
	balance, _ := tx.Balance.Float64()

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: richText(title),
		},
		"Process": notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Process.Label()},
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Category.Label()},
		},
		"Amount": notionapi.NumberProperty{
			Number: amount,
		},
		"Balance": notionapi.NumberProperty{
			Number: balance,
		},
	}

	if tx.Date.IsValid() {
		d := notionapi.Date(tx.Date.In(time.UTC))
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	if tx.Note != "" {
		props["Note"] = notionapi.RichTextProperty{
			RichText: richText(tx.Note),
		}
	}

	if tx.Actor != "" {
		props["Actor"] = notionapi.RichTextProperty{
			RichText: richText(tx.Actor),
		}
	}

	return props
}

var _ Sink = (*NotionSink)(nil)
var _ NotionService = (*NotionClient)(nil)
