package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"web-rag/internal/config"
	"web-rag/internal/voice"
)

// REPL is the conversational surface: freeform input, no fixed command
// syntax beyond quit/exit. Operation errors are reported and the loop
// continues; it never terminates on an operation failure.
type REPL struct {
	agent *Agent
	voice *voiceIO
	in    io.Reader
	out   io.Writer
}

type voiceIO struct {
	transcriber voice.Transcriber
	synthesizer voice.Synthesizer
	player      string
	speak       bool
}

func NewREPL(a *Agent, in io.Reader, out io.Writer) *REPL {
	return &REPL{agent: a, in: in, out: out}
}

// EnableVoice turns on voice turns: audio file paths typed at the prompt
// are transcribed into questions, and answers are optionally spoken.
func (r *REPL) EnableVoice(cfg *config.VoiceConfig) {
	client := voice.NewClient(cfg)
	r.voice = &voiceIO{
		transcriber: client,
		synthesizer: client,
		player:      cfg.Player,
		speak:       cfg.Speak,
	}
}

// Run processes turns until quit/exit or EOF.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "Website QA assistant ready.")
	fmt.Fprintln(r.out, "Paste URLs (comma-separated) to load content, or ask a question.")
	fmt.Fprintln(r.out, "Type 'quit' to exit.")

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "quit", "exit":
			return nil
		case "":
			continue
		}

		if r.voice != nil && isAudioFile(input) {
			transcribed, err := r.voice.transcriber.Transcribe(ctx, input)
			if err != nil {
				// Surfaced verbatim, no retry, retriever untouched.
				fmt.Fprintf(r.out, "%v\n", err)
				continue
			}
			fmt.Fprintf(r.out, "Question: %s\n", transcribed)
			input = transcribed
		}

		response, err := r.agent.HandleInput(ctx, input)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			continue
		}
		if response == "" {
			continue
		}
		fmt.Fprintf(r.out, "\nAssistant: %s\n", response)

		if r.voice != nil && r.voice.speak {
			if err := voice.Speak(ctx, r.voice.synthesizer, r.voice.player, response); err != nil {
				log.Warn().Err(err).Msg("Could not speak answer")
			}
		}
	}
}

func isAudioFile(input string) bool {
	lower := strings.ToLower(input)
	if !strings.HasSuffix(lower, ".wav") && !strings.HasSuffix(lower, ".mp3") && !strings.HasSuffix(lower, ".ogg") {
		return false
	}
	info, err := os.Stat(input)
	return err == nil && !info.IsDir()
}
