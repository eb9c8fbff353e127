package doctor

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"parlo/audio"
	"parlo/lesson"
	"parlo/store"
)

// Run executes interactive diagnostic checks and returns an exit code
// (0=all pass, 1=any fail).
func Run(dataDir string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("parlo doctor - system diagnostics")
	fmt.Println("==================================")

	allPass := true

	if !checkAPIKey() {
		allPass = false
	}
	if !checkMicrophone() {
		allPass = false
	}
	if !checkSpeaker() {
		allPass = false
	}
	if !checkStore(dataDir) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkAPIKey() bool {
	fmt.Println()
	fmt.Println("[1/4] API key")

	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Println("  FAIL: GEMINI_API_KEY is not set")
		return false
	}
	fmt.Println("  PASS: GEMINI_API_KEY is set")
	return true
}

func checkMicrophone() bool {
	fmt.Println()
	fmt.Println("[2/4] Microphone")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}
	fmt.Printf("  Found %d capture device(s), using: %s\n", len(devices), devices[0].Name)

	fmt.Print("  Speak for 3 seconds")
	pcm, peak, err := recordAudio(ctx, &devices[0], 3*time.Second)
	if err != nil {
		fmt.Printf("\n  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Println("\n  FAIL: no audio captured")
		return false
	}

	fmt.Printf("  Captured %.1f KB, peak level %.3f\n", float64(len(pcm))/1024, peak)
	if peak < 0.01 {
		fmt.Println("  FAIL: only silence captured. Is the right microphone selected?")
		return false
	}
	fmt.Println("  PASS: microphone captures audio")
	return true
}

func recordAudio(ctx audio.Context, device *audio.DeviceInfo, d time.Duration) ([]byte, float64, error) {
	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: audio.CaptureSampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		return nil, 0, err
	}
	defer capture.Close()

	var (
		mu   sync.Mutex
		pcm  []byte
		peak float64
	)
	capture.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		pcm = append(pcm, data...)
		for i := 0; i+1 < len(data); i += 2 {
			sample := math.Abs(float64(int16(binary.LittleEndian.Uint16(data[i:]))) / 32768.0)
			if sample > peak {
				peak = sample
			}
		}
		mu.Unlock()
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		return nil, 0, err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(d)
	for {
		select {
		case <-ticker.C:
			fmt.Print(".")
		case <-deadline:
			fmt.Println(" done")
			capture.Stop()
			capture.ClearCallback()
			mu.Lock()
			defer mu.Unlock()
			return pcm, peak, nil
		}
	}
}

func checkSpeaker() bool {
	fmt.Println()
	fmt.Println("[3/4] Speaker")

	sp, err := audio.NewSpeaker()
	if err != nil {
		fmt.Printf("  FAIL: cannot open playback device: %v\n", err)
		return false
	}
	defer sp.Close()

	fmt.Println("  Playing a short tone...")
	done := make(chan struct{})
	sp.Schedule(tone(440, 500*time.Millisecond), sp.Now(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		fmt.Println("  FAIL: playback did not complete")
		return false
	}
	fmt.Println("  PASS: playback device works")
	return true
}

// tone renders a sine wave as S16LE mono at the playback rate.
func tone(freq float64, d time.Duration) []byte {
	n := int(float64(audio.PlaybackSampleRate) * d.Seconds())
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / audio.PlaybackSampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*0.3*32767)))
	}
	return pcm
}

func checkStore(dataDir string) bool {
	fmt.Println()
	fmt.Println("[4/4] Data store")

	s, err := store.Open(store.Options{Dir: dataDir})
	if err != nil {
		fmt.Printf("  FAIL: cannot open store at %s: %v\n", dataDir, err)
		return false
	}
	defer s.Close()

	probe := &lesson.Lesson{ID: "doctor-probe", Title: "probe", CreatedAt: time.Now().UTC()}
	if err := s.WriteLesson(context.Background(), probe); err != nil {
		fmt.Printf("  FAIL: cannot write: %v\n", err)
		return false
	}
	got, err := s.Lesson(context.Background(), probe.ID)
	if err != nil || got == nil {
		fmt.Printf("  FAIL: cannot read back: %v\n", err)
		return false
	}
	s.DeleteLesson(context.Background(), probe.ID)
	fmt.Printf("  PASS: store at %s is writable\n", dataDir)
	return true
}
