package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"parlo/audio"
	"parlo/doctor"
	"parlo/lesson"
	"parlo/live"
	"parlo/log"
	"parlo/shutdown"
	"parlo/store"
)

var version = "dev"

const (
	defaultLiveModel   = "gemini-2.0-flash-live-001"
	defaultLessonModel = "gemini-2.0-flash"
)

func main() {
	run()
}

func run() {
	modelFlag := flag.String("model", defaultLiveModel, "Gemini Live model for the conversation")
	lessonModelFlag := flag.String("lessonmodel", defaultLessonModel, "Gemini model for lesson generation and feedback")
	nativeFlag := flag.String("native", "English", "Your native language")
	targetFlag := flag.String("target", "Spanish", "Language you are learning")
	levelFlag := flag.String("level", "beginner", "Your level in the target language")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	dataFlag := flag.String("data", "", "Data directory (default: OS-specific location)")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location, use ./ for current dir)")
	lessonFlag := flag.String("lesson", "", "Practice a stored lesson by ID")
	listFlag := flag.Bool("list", false, "List stored lessons and feedback, then exit")
	clearFlag := flag.Bool("clear", false, "Delete all stored lessons and feedback, then exit")
	noLessonFlag := flag.Bool("nolesson", false, "Skip lesson generation, free conversation")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("parlo %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	dataDir, err := resolveDataDir(*dataFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve data directory: %v\n", err)
		os.Exit(1)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(dataDir))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	st, err := store.Open(store.Options{Dir: dataDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *listFlag {
		listRecords(st)
		return
	}
	if *clearFlag {
		if err := st.ClearAll(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("All stored lessons and feedback deleted.")
		return
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY is not set")
		os.Exit(1)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		log.Errorf("genai client init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	gen := lesson.NewGenerator(client, *lessonModelFlag)

	les, err := pickLesson(st, gen, *lessonFlag, *noLessonFlag, *nativeFlag, *targetFlag, *levelFlag)
	if err != nil {
		log.Errorf("lesson error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := live.SessionConfig{
		Model:             *modelFlag,
		Title:             les.Title,
		Vocabulary:        les.Words(),
		SystemInstruction: lesson.BuildSystemInstruction(*nativeFlag, *targetFlag, les.Title, les.Vocabulary),
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer audioCtx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := audioCtx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
		if selectedDevice == nil {
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using system default\n", *deviceFlag)
		}
	} else if *setupFlag {
		selectedDevice, err = selectDevice(audioCtx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	sink := &programSink{}
	ctrl := live.NewController(audioCtx, audio.NewSpeaker, live.NewGeminiTransport(apiKey), sink)
	if selectedDevice != nil {
		ctrl.SelectDevice(selectedDevice)
	}
	defer ctrl.Close()

	p := NewTUIProgram(ctrl, cfg, les)
	sink.attach(p)

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ctrl.Stop()

	finishSession(st, gen, les, *nativeFlag, ctrl.Entries())
}

// finishSession prints the conversation and, when anything was said, asks
// the model for written feedback and stores it.
func finishSession(st *store.Store, gen *lesson.Generator, les *lesson.Lesson, native string, entries []live.Entry) {
	if len(entries) == 0 {
		return
	}

	fmt.Println()
	for _, e := range entries {
		speaker := "tutor"
		if e.Speaker == live.RoleUser {
			speaker = "you"
		}
		fmt.Printf("%-5s %s\n", speaker, e.Text)
	}

	fmt.Println("\nGenerating feedback...")
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	analysis, err := gen.Analyze(ctx, les.ID, native, entries)
	if err != nil {
		log.Errorf("analysis error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: could not generate feedback: %v\n", err)
		return
	}
	if err := st.WriteAnalysis(ctx, analysis); err != nil {
		log.Errorf("analysis store error: %v", err)
	}
	fmt.Printf("\n%s\n", analysis.Feedback)
}

func pickLesson(st *store.Store, gen *lesson.Generator, id string, noLesson bool, native, target, level string) (*lesson.Lesson, error) {
	ctx := context.Background()

	if id != "" {
		les, err := st.Lesson(ctx, id)
		if err != nil {
			return nil, err
		}
		if les == nil {
			return nil, fmt.Errorf("lesson %s not found (see -list)", id)
		}
		return les, nil
	}

	if noLesson {
		return &lesson.Lesson{
			ID:        uuid.NewString(),
			Title:     "Free conversation",
			Topic:     "Whatever the learner wants to talk about",
			Level:     level,
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	fmt.Println("Generating a lesson...")
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	les, err := gen.Generate(ctx, native, target, level)
	if err != nil {
		return nil, err
	}
	if err := st.WriteLesson(ctx, les); err != nil {
		return nil, fmt.Errorf("store lesson: %w", err)
	}
	return les, nil
}

func listRecords(st *store.Store) {
	lessons, analyses, err := st.ReadAll(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(lessons) == 0 {
		fmt.Println("No stored lessons.")
	} else {
		fmt.Println("Lessons:")
		for _, l := range lessons {
			fmt.Printf("  %s  %s  [%s]  %s\n", l.ID, l.CreatedAt.Local().Format("2006-01-02 15:04"), l.Level, l.Title)
		}
	}

	if len(analyses) > 0 {
		fmt.Println("\nFeedback:")
		for _, a := range analyses {
			fmt.Printf("  %s  (lesson %s)\n", a.CreatedAt.Local().Format("2006-01-02 15:04"), a.LessonID)
			fmt.Printf("    %s\n", a.Feedback)
		}
	}
}

func resolveDataDir(flagPath string) (string, error) {
	dir := flagPath
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "parlo")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
