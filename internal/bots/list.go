package bots

import (
	pkgpagination "github.com/tradeforgehq/tradeforge-backend/pkg/pagination"
)

// ListParams carries cursor pagination inputs for the bot list.
type ListParams struct {
	pkgpagination.Params
}

// ListResult is one page of bots plus the cursor for the next page.
// Cursor is empty on the last page.
type ListResult struct {
	Items  []BotDTO `json:"items"`
	Cursor string   `json:"cursor"`
}

type listQuery struct {
	limit  int
	cursor *pkgpagination.Cursor
}
