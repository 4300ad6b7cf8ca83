package tools

import (
	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
)

// Context carries the read-only request state handed to every tool: the
// store handle, the calling user and the settings snapshot taken at request
// start.
type Context struct {
	Store    store.Store
	UserID   string
	Settings model.Settings
}
