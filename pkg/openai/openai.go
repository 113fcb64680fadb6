package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Config struct {
	Debug   bool
	Token   string
	BaseURL string
	Proxy   string
	Timeout time.Duration

	// Model is the chat model used for scripts.
	Model string
	// SpeechModel and Voice are used for narration.
	SpeechModel string
	Voice       string
}

type Client struct {
	client      *openai.Client
	debug       bool
	model       string
	speechModel string
	voice       string
}

func New(cfg *Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("openai: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	c := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	c.HTTPClient = httpClient

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	speechModel := cfg.SpeechModel
	if speechModel == "" {
		speechModel = string(openai.TTSModel1HD)
	}
	voice := cfg.Voice
	if voice == "" {
		voice = string(openai.VoiceOnyx)
	}
	return &Client{
		client:      openai.NewClientWithConfig(c),
		debug:       cfg.Debug,
		model:       model,
		speechModel: speechModel,
		voice:       voice,
	}, nil
}

// Voice returns the voice used for narration.
func (c *Client) Voice() string {
	return c.voice
}

// JSON sends a prompt and returns the model answer as a JSON document.
func (c *Client) JSON(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: couldn't create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	content := resp.Choices[0].Message.Content
	if c.debug {
		log.Printf("openai: %s (%d tokens)\n", resp.Model, resp.Usage.TotalTokens)
	}
	return content, nil
}

// Synthesize converts text to mp3 audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.speechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: couldn't create speech: %w", err)
	}
	defer resp.Close()
	b, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("openai: couldn't read speech: %w", err)
	}
	if len(b) == 0 {
		return nil, errors.New("openai: empty speech")
	}
	if c.debug {
		log.Printf("openai: synthesized %d bytes\n", len(b))
	}
	return b, nil
}
