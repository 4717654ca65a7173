package schema

// EventType identifies an event surfaced by the engine.
type EventType string

const (
	// EventPartChanged reports a switch of the active part.
	EventPartChanged EventType = "part_changed"
	// EventPageChanged reports the current page of a text document.
	EventPageChanged EventType = "page_changed"
	// EventPartsUpdated carries part count, current part and part names.
	EventPartsUpdated EventType = "parts_updated"
	// EventCommandState reports a named command state change.
	EventCommandState EventType = "command_state"
	// EventTilesLoaded fires when the last outstanding empty tile is loaded.
	EventTilesLoaded EventType = "tiles_loaded"
	// EventTilePreview carries a one-off preview render.
	EventTilePreview EventType = "tile_preview"
	// EventPartRendered fires once per transition of the rendered part.
	EventPartRendered EventType = "part_rendered"
	// EventSearchFound clears a not-found indication.
	EventSearchFound EventType = "search_found"
	// EventSearchNotFound reports a search that matched nothing.
	EventSearchNotFound EventType = "search_not_found"
	// EventStyles carries the parsed style catalog.
	EventStyles EventType = "styles"
	// EventScrollTo asks the viewport to scroll to a pixel offset.
	EventScrollTo EventType = "scroll_to"
	// EventError carries a server or local error.
	EventError EventType = "error"
	// EventPermission reports a permission mode change.
	EventPermission EventType = "permission"
	// EventIndicator drives the loading progress indicator.
	EventIndicator EventType = "indicator"
)

// Event is the union of everything the engine surfaces. Only the payload
// matching Type is populated.
type Event struct {
	Type       EventType
	Part       PartEvent
	Page       PageEvent
	Parts      PartsEvent
	State      CommandStateEvent
	Preview    TilePreviewEvent
	Search     SearchEvent
	Styles     StylesEvent
	Scroll     ScrollEvent
	Error      ErrorEvent
	Permission PermissionEvent
	Indicator  IndicatorEvent
}

// PartEvent reports the active part.
type PartEvent struct {
	Part    int
	DocType DocType
}

// PageEvent reports the current page in a text document.
type PageEvent struct {
	Page    int
	Pages   int
	DocType DocType
}

// PartsEvent reports document part metadata.
type PartsEvent struct {
	CurrentPart int
	Parts       int
	DocType     DocType
	Names       []string
}

// CommandStateEvent reports a .uno command state.
type CommandStateEvent struct {
	Command string
	State   string
}

// TilePreviewEvent carries a preview render that bypassed the cache.
type TilePreviewEvent struct {
	ID      int
	Width   int
	Height  int
	Part    int
	DocType DocType
	Image   TileImage
}

// SearchEvent reports a search outcome.
type SearchEvent struct {
	Phrase string
	Count  int
}

// StylesEvent carries the style catalog keyed by family.
type StylesEvent struct {
	Styles map[string]any
}

// ScrollEvent is a pixel offset for the viewport's top-left corner.
type ScrollEvent struct {
	X int
	Y int
}

// ErrorEvent carries a failed command and its classification. Message is set
// for locally raised errors.
type ErrorEvent struct {
	Command string
	Kind    string
	Message string
}

// PermissionEvent reports the new permission mode.
type PermissionEvent struct {
	Permission Permission
}

// IndicatorStatus is the phase of the loading indicator.
type IndicatorStatus string

const (
	// IndicatorStart shows the indicator at 0%.
	IndicatorStart IndicatorStatus = "start"
	// IndicatorSetValue updates the percentage.
	IndicatorSetValue IndicatorStatus = "setvalue"
	// IndicatorFinish hides the indicator.
	IndicatorFinish IndicatorStatus = "finish"
	// IndicatorLoaded reports the engine attached to its viewport.
	IndicatorLoaded IndicatorStatus = "loaded"
)

// IndicatorEvent drives the loading indicator.
type IndicatorEvent struct {
	Status IndicatorStatus
	Value  int
}
