package config

import "time"

// Video Output Constants
const (
	// VideoWidth is the default output video width (9:16 aspect ratio)
	VideoWidth = 1080

	// VideoHeight is the default output video height (9:16 aspect ratio)
	VideoHeight = 1920

	// VideoFPS is the fixed output frame rate
	VideoFPS = 30

	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"

	// PixelFormat keeps output playable on every mobile player
	PixelFormat = "yuv420p"

	// AudioCodec is the audio encoding codec
	AudioCodec = "aac"

	// AudioBitrate is the audio quality bitrate
	AudioBitrate = "192k"

	// AudioSampleRate is used for narration, generated silence and the final mix
	AudioSampleRate = 44100

	// AudioChannelLayout is the channel layout of every segment audio stream
	AudioChannelLayout = "stereo"
)

// Render Constants
const (
	// SupersampleFactor pre-scales the canvas before zoompan to reduce jitter
	SupersampleFactor = 2

	// PanelFillFactor leaves neighbouring panels visible around the framed panel
	PanelFillFactor = 0.75

	// MinZoom and MaxZoom clamp every computed zoompan zoom
	MinZoom = 1.0
	MaxZoom = 10.0

	// MusicVolume is the background music level relative to narration
	MusicVolume = 0.12

	// MaxConcurrentSegments bounds parallel segment renders
	MaxConcurrentSegments = 3

	// SegmentTimeout bounds one segment render subprocess
	SegmentTimeout = 10 * time.Minute

	// ConcatTimeout bounds the concat and music mix subprocesses
	ConcatTimeout = 30 * time.Minute
)

// Timing Constants
const (
	// AudioBufferMs is added to audio length for the director's first estimate only
	AudioBufferMs = 500

	// MsPerCharacter drives the text-length estimate for panels without audio
	MsPerCharacter = 80

	// MinEstimateMs is the smallest text-length estimate
	MinEstimateMs = 1000

	// SilentPanelFloorMs is the minimum on-screen time of a panel with no narration
	SilentPanelFloorMs = 2000

	// SegmentGapMs is the default silence between speakers of a multi-speaker panel
	SegmentGapMs = 300
)

// Speech Provider Constants
const (
	// SpeechInterval paces calls to the speech provider
	SpeechInterval = 500 * time.Millisecond

	// SpeechMaxRetries bounds retries of transient provider errors
	SpeechMaxRetries = 3

	// SpeechTimeout is the HTTP timeout of one synthesis call
	SpeechTimeout = 60 * time.Second

	// DefaultSpeechModel is the provider model used when none is configured
	DefaultSpeechModel = "eleven_multilingual_v2"
)

// State Constants
const (
	// MaxLogs is the number of log entries kept per project
	MaxLogs = 50

	// PreviewCacheTTL is how long a rendered preview path is reused
	PreviewCacheTTL = 30 * time.Minute

	// CancelPollInterval is how often a running job checks the store for a
	// cancellation recorded by another process
	CancelPollInterval = 2 * time.Second
)
