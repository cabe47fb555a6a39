//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/himanishpuri/SetlistDNA/internal/boundary"
	"github.com/himanishpuri/SetlistDNA/internal/fingerprint"
	"github.com/himanishpuri/SetlistDNA/internal/onset"
	"github.com/himanishpuri/SetlistDNA/internal/smoothing"
	"github.com/himanishpuri/SetlistDNA/internal/tracklist"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorSpectrogramFailed
	ErrorPeakExtraction
	ErrorHashGeneration
)

// readSamples converts a JS array of numbers to mono float64 samples.
func readSamples(audioDataJS, sampleRateJS, channelsJS js.Value) ([]float64, int, *js.Value) {
	fail := func(msg string) ([]float64, int, *js.Value) {
		v := makeErrorResponse(ErrorInvalidArgs, msg)
		return nil, 0, &v
	}
	if audioDataJS.Type() != js.TypeObject {
		return fail("audioArray must be an Array or Float64Array")
	}
	if sampleRateJS.Type() != js.TypeNumber {
		return fail("sampleRate must be a number")
	}
	if channelsJS.Type() != js.TypeNumber {
		return fail("channels must be a number")
	}

	sampleRate := sampleRateJS.Int()
	channels := channelsJS.Int()
	if sampleRate <= 0 {
		return fail(fmt.Sprintf("Invalid sample rate: %d", sampleRate))
	}
	if channels < 1 || channels > 2 {
		return fail(fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	length := audioDataJS.Length()
	if length == 0 {
		return fail("audioArray is empty")
	}

	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return fail(fmt.Sprintf("audioArray element %d is not a number", i))
		}
		samples[i] = val.Float()
	}
	if channels == 2 {
		samples = stereoToMono(samples)
	}
	return samples, sampleRate, nil
}

// generateFingerprint(audioArray, sampleRate, channels) returns landmark
// hashes shaped for POST /api/library/match/hashes. Samples should already be
// at the library's rate.
// Returns: {error: number, data: array | string}
func generateFingerprint(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, channels")
	}
	samples, sampleRate, errResp := readSamples(args[0], args[1], args[2])
	if errResp != nil {
		return *errResp
	}

	params := fingerprint.DefaultParams()
	spec, err := fingerprint.Spectrogram(samples, params)
	if err != nil {
		return makeErrorResponse(ErrorSpectrogramFailed, fmt.Sprintf("Failed to generate spectrogram: %v", err))
	}

	peaks := fingerprint.ExtractPeaks(spec, sampleRate, params)
	if len(peaks) == 0 {
		return makeErrorResponse(ErrorPeakExtraction, "No peaks found in audio (audio may be silent or too short)")
	}

	hashes := fingerprint.Hashes(peaks)
	if len(hashes) == 0 {
		return makeErrorResponse(ErrorHashGeneration, "No fingerprint hashes generated")
	}

	hashArray := js.Global().Get("Array").New()
	for i, h := range hashes {
		hashObj := js.Global().Get("Object").New()
		hashObj.Set("address", h.Address)
		hashObj.Set("anchor_ms", h.AnchorMs)
		hashArray.SetIndex(i, hashObj)
	}
	return makeResponse(hashArray)
}

// detectBoundaries(audioArray, sampleRate, channels, minSeparation) runs both
// change detectors over the samples and returns reconciled boundaries in
// seconds.
func detectBoundaries(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected at least 3 arguments: audioArray, sampleRate, channels")
	}
	samples, sampleRate, errResp := readSamples(args[0], args[1], args[2])
	if errResp != nil {
		return *errResp
	}
	minSeparation := 30.0
	if len(args) > 3 && args[3].Type() == js.TypeNumber {
		minSeparation = args[3].Float()
	}
	if minSeparation <= 0 {
		return makeErrorResponse(ErrorInvalidArgs, "minSeparation must be positive")
	}

	analysis, err := onset.Analyze(onset.NewSliceReader(samples, sampleRate), onset.DefaultConfig())
	if err != nil {
		return makeErrorResponse(ErrorProcessing, fmt.Sprintf("Failed to analyze audio: %v", err))
	}

	boundaries := boundary.Reconcile(analysis.Candidates, minSeparation)
	out := js.Global().Get("Array").New()
	for i, b := range boundaries {
		out.SetIndex(i, b)
	}
	return makeResponse(out)
}

// replayTracklist(resultsJSON, strategy?, windowSize?, minTrackDuration?)
// re-smooths a saved results file and returns {text, report} where report
// is the JSON-encoded tracklist report.
func replayTracklist(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected resultsJSON string as first argument")
	}
	rec, err := tracklist.ReadRecord(strings.NewReader(args[0].String()))
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Invalid results JSON: %v", err))
	}

	opts := smoothing.DefaultOptions()
	if len(args) > 1 && args[1].Type() == js.TypeString && args[1].String() != "" {
		s, err := smoothing.ParseStrategy(args[1].String())
		if err != nil {
			return makeErrorResponse(ErrorInvalidArgs, err.Error())
		}
		opts.Strategy = s
	}
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		opts.WindowSize = args[2].Int()
	}
	if len(args) > 3 && args[3].Type() == js.TypeNumber {
		opts.MinTrackDuration = args[3].Float()
	}

	report, err := rec.Replay(opts, "")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	data, err := json.Marshal(report)
	if err != nil {
		return makeErrorResponse(ErrorProcessing, err.Error())
	}

	obj := js.Global().Get("Object").New()
	obj.Set("text", report.Text())
	obj.Set("report", string(data))
	return makeResponse(obj)
}

func stereoToMono(stereo []float64) []float64 {
	if len(stereo)%2 != 0 {
		stereo = stereo[:len(stereo)-1]
	}

	monoLength := len(stereo) / 2
	mono := make([]float64, monoLength)

	for i := 0; i < monoLength; i++ {
		mono[i] = (stereo[i*2] + stereo[i*2+1]) / 2.0
	}

	return mono
}

func makeResponse(data js.Value) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}
	logf("log", "🔧 SetlistDNA WASM module initializing...")

	done := make(chan struct{})

	js.Global().Set("generateFingerprint", js.FuncOf(generateFingerprint))
	js.Global().Set("detectBoundaries", js.FuncOf(detectBoundaries))
	js.Global().Set("replayTracklist", js.FuncOf(replayTracklist))
	logf("log", "📝 generateFingerprint, detectBoundaries, replayTracklist registered")

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
		logf("log", "✅ wasmReady event dispatched")
	} else {
		logf("error", "❌ window object is undefined!")
	}

	logf("log", "✅ SetlistDNA WASM module loaded and ready")
	<-done
}
