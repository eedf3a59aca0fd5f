package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"isl-announcer/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo is served by /version.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo is one method and path template registered on the router.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

const rule = "------------------------------------------------------------"

func section(title string, args ...any) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(title, args...)
	logging.Info(rule)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	section("DATABASE")
	logging.Info("  [OK] Announcement store ready in %v", duration)
}

// LogEncoderInit reports the encoder thread count and whether ffmpeg and
// ffprobe can be run. Generation and transcription fail per request without
// them, so a missing encoder is not fatal.
func LogEncoderInit(threads int) bool {
	section("ENCODER")
	logging.Info("  Threads: %d", threads)

	version, err := ffmpegVersion()
	if err != nil {
		logging.Warn("  %v", err)
		logging.Warn("  Video generation and speech conversion will fail")
		return false
	}
	logging.Info("  [OK] %s", version)
	return true
}

// LogLibraryInit logs the sign media library found at startup.
func LogLibraryInit(dir string, videos, images int, hasDefault bool, err error) {
	section("SIGN LIBRARY")
	logging.Info("  Directory: %s", dir)
	if err != nil {
		logging.Warn("  Library unavailable: %v", err)
		logging.Warn("  Generation requests will fail until it exists")
		return
	}
	logging.Info("  Clips: %d videos, %d images", videos, images)
	if hasDefault {
		logging.Info("  [OK] Default clip present")
	} else {
		logging.Warn("  No default clip; unmatched words will be omitted")
	}
}

// LogSpeechInit logs the speech recognition backend.
func LogSpeechInit(backend string, configured bool) {
	section("SPEECH RECOGNITION")
	logging.Info("  Backend: %s", backend)
	if !configured {
		logging.Warn("  SPEECH_API_KEY not set; uploads need a transcript field")
	}
}

// LogRetentionInit logs the announcement retention policy.
func LogRetentionInit(retention, interval time.Duration) {
	section("RETENTION")
	if retention <= 0 {
		logging.Info("  Announcements are kept until deleted")
		return
	}
	logging.Info("  Announcements kept for %v, swept every %v", retention, interval)
}

// LogMemoryInit logs the heap budget used for render backpressure.
func LogMemoryInit(limitBytes int64, source string) {
	section("MEMORY")
	if limitBytes <= 0 {
		logging.Info("  No memory limit; renders are never held back")
		return
	}
	logging.Info("  Limit: %d MiB (from %s)", limitBytes>>20, source)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			// prefix-only routes have no methods
			return nil
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the access log settings and, at debug level, every
// route grouped by its first path segment.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	section("HTTP SERVER")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		sort.SliceStable(routes, func(i, j int) bool {
			gi, gj := getRouteGroup(routes[i].Path), getRouteGroup(routes[j].Path)
			if gi != gj {
				return gi < gj
			}
			return routes[i].Path < routes[j].Path
		})

		logging.Debug("  %d routes:", len(routes))
		group := "\x00"
		for _, route := range routes {
			if g := getRouteGroup(route.Path); g != group {
				group = g
				if group == "" {
					logging.Debug("  [root]")
				} else {
					logging.Debug("  [%s]", group)
				}
			}
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  Access log: health checks %s, library files %s",
		onOff(logHealthChecks), onOff(logStaticFiles))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// getRouteGroup returns "api/<resource>" for API routes and the first path
// segment otherwise.
func getRouteGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the listening addresses.
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED in %v", config.StartupDuration)
	logging.Info("  API:      http://0.0.0.0:%s/api/announcements", config.Port)
	logging.Info("  Health:   http://0.0.0.0:%s/health", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:  http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:  disabled")
	}
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section("SHUTDOWN (%s)", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...any) {
	logging.Fatal(format, args...)
}

func printBanner() {
	fmt.Println(`
------------------------------------------------------------
  ___ ____  _        _
 |_ _/ ___|| |      / \   _ __  _ __   ___  _   _ _ __   ___ ___ _ __
  | |\___ \| |     / _ \ | '_ \| '_ \ / _ \| | | | '_ \ / __/ _ \ '__|
  | | ___) | |___ / ___ \| | | | | | | (_) | |_| | | | | (_|  __/ |
 |___|____/|_____/_/   \_\_| |_|_| |_|\___/ \__,_|_| |_|\___\___|_|
` + rule)
	logging.Info("  Version %s (%s), built %s", Version, Commit, BuildTime)
	logging.Info("  Started %s", time.Now().Format(time.RFC1123))
}

func logSystemInfo() {
	section("SYSTEM")
	logging.Info("  %s on %s/%s, %d CPUs, GOMAXPROCS %d",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.GOMAXPROCS(0))
	if wd, err := os.Getwd(); err == nil {
		logging.Debug("  Working dir: %s", wd)
	}
}

// ffmpegVersion returns the first line of `ffmpeg -version` once both
// ffmpeg and ffprobe are found on PATH.
func ffmpegVersion() (string, error) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return "", fmt.Errorf("%s not found in PATH", bin)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run ffmpeg: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}
