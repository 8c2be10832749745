package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"

	"scribe/audio"
	"scribe/beep"
	"scribe/config"
	"scribe/doctor"
	"scribe/encoder"
	"scribe/log"
	"scribe/note"
	"scribe/pipeline"
	"scribe/prompt"
	"scribe/transcriber"
)

var version = "dev"

var (
	runsMu sync.Mutex
	runs   int

	sessionMu     sync.Mutex
	activeSession *recordSession

	shutdownOnce sync.Once
)

func countRun() {
	runsMu.Lock()
	runs++
	runsMu.Unlock()
}

func setActiveSession(s *recordSession) {
	sessionMu.Lock()
	activeSession = s
	sessionMu.Unlock()
}

func currentSession() *recordSession {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return activeSession
}

// gracefulShutdown releases the capture device if a take is in flight,
// flushes the logs and exits. Safe to call from any goroutine.
func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if s := currentSession(); s != nil {
			s.stop()
		}
		runsMu.Lock()
		n := runs
		runsMu.Unlock()
		if n > 0 {
			log.SessionEnd(n)
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "template" {
		os.Exit(runTemplate(os.Args[2:]))
	}
	run()
}

func run() {
	fileFlag := flag.String("file", "", "Transcribe an audio file instead of recording")
	titleFlag := flag.String("title", "", "Note title (skips the title prompt)")
	typeFlag := flag.String("type", "", "Transcription type; with -file runs headless")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	formatFlag := flag.String("format", "flac", "Audio format: wav or flac")
	modelFlag := flag.String("model", "", "Override the configured model")
	notesFlag := flag.String("notes", "", "Override the configured notes folder")
	copyFlag := flag.Bool("copy", true, "Copy the transcription to the clipboard")
	fakeFlag := flag.Bool("fake", false, "Use a canned transcription instead of the remote service")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run setup diagnostics and exit")
	flag.Parse()

	godotenv.Load()

	// Resolve log directory early
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

	if *versionFlag {
		fmt.Printf("scribe %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run())
	}

	switch *formatFlag {
	case "wav", "flac":
	default:
		fmt.Printf("Error: unknown format %q (use wav or flac)\n", *formatFlag)
		os.Exit(1)
	}

	cfgPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve config location: %v\n", err)
		os.Exit(1)
	}
	store := config.NewJSONStore(cfgPath)
	settings, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading settings: %v\n", err)
		os.Exit(1)
	}
	if *modelFlag != "" {
		settings.Model = *modelFlag
	}
	if *notesFlag != "" {
		settings.NotesDir = *notesFlag
	}

	var client transcriber.Client
	var gemini *transcriber.Gemini
	if *fakeFlag {
		client = transcriber.NewFake("This is a canned transcription.", nil)
	} else {
		gemini = transcriber.NewGemini(settings.ResolveKey(), settings.Model)
		client = gemini
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(client.Name(), settings.Model, *formatFlag)
	}

	// Per-run payload figures for the metrics log, written before the
	// transcribe call and read when its metrics callback fires. One run at
	// a time, so a plain mutex is enough.
	var runInfoMu sync.Mutex
	var runAudioS, runPayloadKB, runEncodeMs float64
	if gemini != nil {
		gemini.OnMetrics = func(op string, m *transcriber.NetworkMetrics) {
			runInfoMu.Lock()
			audioS, payloadKB, encodeMs := runAudioS, runPayloadKB, runEncodeMs
			runInfoMu.Unlock()
			log.Request(log.RequestMetrics{
				Op:         op,
				AudioS:     audioS,
				PayloadKB:  payloadKB,
				EncodeMs:   encodeMs,
				DNSMs:      float64(m.DNS.Milliseconds()),
				TLSMs:      float64(m.TLS.Milliseconds()),
				TTFBMs:     float64(m.TTFB.Milliseconds()),
				TotalMs:    float64(m.Total.Milliseconds()),
				ConnReused: m.ConnReused,
			}, settings.Model)
		}
		go gemini.Warm()
	}

	writer := note.NewWriter(settings.NotesDir)
	tracker := &pipeline.Tracker{}
	runner := &pipeline.Runner{Client: client, Notes: writer}

	if *fileFlag != "" && *typeFlag != "" {
		os.Exit(runHeadless(runner, tracker, settings, *fileFlag, *typeFlag, *titleFlag, *copyFlag))
	}

	var preload *transcriber.Payload
	if *fileFlag != "" {
		data, err := os.ReadFile(*fileFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading %s: %v\n", *fileFlag, err)
			os.Exit(1)
		}
		preload = &transcriber.Payload{Data: data, MIME: transcriber.MIMEForPath(*fileFlag)}
	}

	var capture audio.CaptureDevice
	if preload == nil {
		audioCtx, err := audio.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
			os.Exit(1)
		}
		defer audioCtx.Close()

		var dev *audio.DeviceInfo
		if *setupFlag && *deviceFlag == "" {
			if dev, err = audio.SelectDevice(audioCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
				os.Exit(1)
			}
		} else if *deviceFlag != "" {
			if dev, err = findDevice(audioCtx, *deviceFlag); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		capture, err = audioCtx.NewCapture(dev, audio.CaptureConfig{
			SampleRate: encoder.SampleRate,
			Channels:   encoder.Channels,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
			os.Exit(1)
		}
		defer capture.Close()
	}

	beep.Init()

	intents := make(chan Intent, 4)
	tuiMu.Lock()
	tuiProgram = NewTUIProgram(intents)
	tuiMu.Unlock()

	tuiDone := make(chan struct{})
	go func() {
		if _, err := tuiProgram.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		}
		close(tuiDone)
	}()
	<-tuiReady

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	tuiSend(ModeLineMsg{Text: fmt.Sprintf("[%s | %s | %s]", *formatFlag, client.Name(), settings.Model)})
	if preload != nil {
		tuiSend(DeviceLineMsg{Text: "file: " + *fileFlag})
	} else {
		name := capture.DeviceName()
		if audio.IsBluetooth(name) {
			name += " (BT!)"
		}
		tuiSend(DeviceLineMsg{Text: "mic: " + name})
	}
	if *titleFlag != "" {
		tuiSend(NewRunMsg{Title: *titleFlag})
	}

	runner.OnStage = func(s pipeline.Stage) {
		log.Stage(s.String())
		tuiSend(PipelineStageMsg{Stage: s})
	}

	// Session loop: one goroutine owns the run state, the TUI only sends
	// intents. The payload lives from stop (or file load) until its run is
	// dispatched, never longer.
	var (
		token       string
		title       string
		payload     transcriber.Payload
		havePayload bool
		tickStop    chan struct{}
	)

loop:
	for {
		select {
		case <-tuiDone:
			break loop

		case it := <-intents:
			switch it.Kind {
			case intentTitleDone:
				t, err := tracker.Begin()
				if err != nil {
					tuiSend(RunErrorMsg{Text: err.Error()})
					continue
				}
				token = t
				title = it.Title
				if preload != nil {
					payload = *preload
					havePayload = true
					tuiSend(SelectStageMsg{Options: prompt.Options(settings.Templates)})
					continue
				}
				enc, err := encoder.New(*formatFlag)
				if err != nil {
					tracker.End(token)
					tuiSend(RunErrorMsg{Text: err.Error()})
					continue
				}
				s := newRecordSession(capture, enc)
				if err := s.begin(func(level float64) {
					tuiSend(AudioLevelMsg{Level: level})
				}); err != nil {
					tracker.End(token)
					tuiSend(RunErrorMsg{Text: userMessage(err)})
					continue
				}
				setActiveSession(s)
				tickStop = make(chan struct{})
				go elapsedTicker(s, tickStop)
				beep.PlayStart()
				tuiSend(RecordingStartMsg{})

			case intentStopRecording:
				s := currentSession()
				if s == nil {
					continue
				}
				close(tickStop)
				p, finalized, err := s.stop()
				setActiveSession(nil)
				beep.PlayEnd()
				if !finalized {
					continue
				}
				if err != nil {
					tracker.End(token)
					tuiSend(RunErrorMsg{Text: "Encoding failed: " + err.Error()})
					continue
				}
				runInfoMu.Lock()
				runAudioS = s.seconds()
				runPayloadKB = float64(len(p.Data)) / 1024
				runEncodeMs = s.encodeMillis()
				runInfoMu.Unlock()
				payload = p
				havePayload = true
				tuiSend(SelectStageMsg{Options: prompt.Options(settings.Templates)})

			case intentCancel:
				// Esc before the transcribe call: discard the take, keep
				// the title for the next attempt.
				if s := currentSession(); s != nil {
					close(tickStop)
					s.stop()
					setActiveSession(nil)
				}
				havePayload = false
				tracker.End(token)
				tuiSend(NewRunMsg{Title: title})

			case intentSelect:
				if !havePayload {
					continue
				}
				p := payload
				havePayload = false
				opt := it.Option
				runToken := token
				runTitle := title
				go func() {
					// No deadline: once issued, the run is not cancellable.
					res, err := runner.Run(context.Background(), p, opt.Instruction, runTitle)
					if err != nil {
						beep.PlayError()
						log.Errorf("run failed: %v", err)
						tracker.End(runToken)
						tuiSend(RunErrorMsg{Text: userMessage(err)})
						return
					}
					copied := false
					if *copyFlag {
						if err := clipboard.WriteAll(res.Text); err == nil {
							copied = true
						}
					}
					log.NoteSaved(res.NotePath)
					countRun()
					tracker.End(runToken)
					tuiSend(RunDoneMsg{Path: res.NotePath, Text: res.Text, Copied: copied})
				}()

			case intentNewRun:
				tuiSend(NewRunMsg{Title: it.Title})

			case intentQuit:
				gracefulShutdown()
			}
		}
	}
	gracefulShutdown()
}

func elapsedTicker(s *recordSession, stop <-chan struct{}) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			tuiSend(RecordingTickMsg{Duration: s.seconds()})
		}
	}
}

func findDevice(ctx audio.Context, name string) (*audio.DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	for i := range devices {
		if strings.EqualFold(devices[i].Name, name) {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), strings.ToLower(name)) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device %q not found", name)
}

// userMessage maps the error taxonomy onto one short actionable line.
func userMessage(err error) string {
	var authErr *transcriber.AuthError
	var netErr *transcriber.NetworkError
	var svcErr *transcriber.ServiceError
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "Microphone access denied. Grant microphone permission and try again."
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "No usable microphone found. Check the input device and try again."
	case errors.Is(err, transcriber.ErrMissingKey):
		return "No API key configured. Set GEMINI_API_KEY or add apiKey to settings."
	case errors.As(err, &authErr):
		return "The service rejected the API key. Check the configured key."
	case errors.As(err, &netErr):
		return "Network error while contacting the transcription service. Check the connection and try again."
	case errors.As(err, &svcErr):
		return "Transcription failed: " + svcErr.Body
	default:
		return err.Error()
	}
}

// runHeadless drives one -file -type run without the TUI, printing stage
// lines to stdout. The note is saved but not opened.
func runHeadless(runner *pipeline.Runner, tracker *pipeline.Tracker, settings config.Settings, file, typeName, title string, copyText bool) int {
	beep.Disable()
	runner.Notes.Open = nil

	opt, ok := prompt.Find(settings.Templates, typeName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown transcription type %q\n", typeName)
		return 1
	}

	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading %s: %v\n", file, err)
		return 1
	}
	payload := transcriber.Payload{Data: data, MIME: transcriber.MIMEForPath(file)}

	token, err := tracker.Begin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer tracker.End(token)

	runner.OnStage = func(s pipeline.Stage) {
		fmt.Println(s.String())
		log.Stage(s.String())
	}

	res, err := runner.Run(context.Background(), payload, opt.Instruction, title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		return 1
	}
	if copyText {
		clipboard.WriteAll(res.Text)
	}
	log.NoteSaved(res.NotePath)
	log.SessionEnd(1)
	fmt.Println(res.NotePath)
	return 0
}

// runTemplate implements the `scribe template new <name>` subcommand: the
// model authors the instruction text, the template is appended and saved.
func runTemplate(args []string) int {
	if len(args) < 1 || args[0] != "new" {
		fmt.Fprintln(os.Stderr, "Usage: scribe template new <name> [-describe text]")
		return 2
	}

	fs := flag.NewFlagSet("template new", flag.ExitOnError)
	describe := fs.String("describe", "", "One-line description shown in the type selector")
	fake := fs.Bool("fake", false, "Use a canned instruction instead of the remote service")
	fs.Parse(args[1:])
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: scribe template new <name> [-describe text]")
		return 2
	}
	name := fs.Arg(0)

	godotenv.Load()

	cfgPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve config location: %v\n", err)
		return 1
	}
	store := config.NewJSONStore(cfgPath)
	settings, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading settings: %v\n", err)
		return 1
	}

	var client transcriber.Client
	if *fake {
		client = transcriber.NewFake("", nil)
	} else {
		client = transcriber.NewGemini(settings.ResolveKey(), settings.Model)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	instruction, err := client.SynthesizeInstruction(ctx, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		return 1
	}

	settings.Templates = append(settings.Templates, config.Template{
		Name:        name,
		Description: *describe,
		Instruction: instruction,
	})
	if err := store.Save(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: saving settings: %v\n", err)
		return 1
	}

	fmt.Printf("Template %q added:\n  %s\n", name, instruction)
	return 0
}
