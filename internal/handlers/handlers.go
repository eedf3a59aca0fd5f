package handlers

import (
	"time"

	"isl-announcer/internal/catalog"
	"isl-announcer/internal/compositor"
	"isl-announcer/internal/database"
	"isl-announcer/internal/events"
	"isl-announcer/internal/media"
	"isl-announcer/internal/memory"
	"isl-announcer/internal/retention"
	"isl-announcer/internal/speech"
	"isl-announcer/internal/startup"
)

// Deps are the services the handlers call into. Transcriber, Sweeper and
// Memory may be nil.
type Deps struct {
	DB          *database.Database
	Generator   *compositor.Generator
	Transcriber speech.Transcriber
	Thumbnails  *media.ThumbnailGenerator
	Hub         *events.Hub
	Catalogs    *catalog.Cache
	Sweeper     *retention.Sweeper
	Memory      *memory.Monitor
	// EncoderAvailable reports whether ffmpeg was found at startup.
	EncoderAvailable bool
}

type Handlers struct {
	db          *database.Database
	generator   *compositor.Generator
	transcriber speech.Transcriber
	thumbGen    *media.ThumbnailGenerator
	hub         *events.Hub
	catalogs    *catalog.Cache
	sweeper     *retention.Sweeper
	memory      *memory.Monitor

	mediaDir         string
	uploadDir        string
	maxUploadBytes   int64
	authEnabled      bool
	encoderAvailable bool
	startTime        time.Time
}

func New(deps Deps, config *startup.Config) *Handlers {
	catalogs := deps.Catalogs
	if catalogs == nil {
		catalogs = catalog.NewCache()
	}
	hub := deps.Hub
	if hub == nil {
		hub = events.NewHub()
	}

	return &Handlers{
		db:               deps.DB,
		generator:        deps.Generator,
		transcriber:      deps.Transcriber,
		thumbGen:         deps.Thumbnails,
		hub:              hub,
		catalogs:         catalogs,
		sweeper:          deps.Sweeper,
		memory:           deps.Memory,
		mediaDir:         config.MediaDir,
		uploadDir:        config.UploadDir,
		maxUploadBytes:   config.MaxUploadBytes,
		authEnabled:      config.AuthEnabled,
		encoderAvailable: deps.EncoderAvailable,
		startTime:        time.Now(),
	}
}
