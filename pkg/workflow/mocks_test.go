package workflow

import (
	"context"
	"errors"

	imagedom "github.com/shouni/gemini-image-kit/ports"

	"github.com/ESV43/Com/pkg/backend"
	"github.com/ESV43/Com/pkg/domain"
)

// scriptedBackend は backend.Backend のテスト用実装なのだ。
// 応答はキュー形式で、呼び出しごとに先頭から消費する。
type scriptedBackend struct {
	kind domain.BackendKind
	caps backend.Capabilities

	decomposeCalls int
	lastInstr      string
	decomposeQueue []textReply

	describeCalls int
	describeQueue []textReply

	renderCalls   int
	renderSeeds   []int64
	renderPrompts []string
	renderQueue   []imageReply
}

type textReply struct {
	text string
	err  error
}

type imageReply struct {
	img *imagedom.ImageResponse
	err error
}

var errScriptExhausted = errors.New("mock: 応答キューが空です")

func (s *scriptedBackend) Kind() domain.BackendKind           { return s.kind }
func (s *scriptedBackend) Capabilities() backend.Capabilities { return s.caps }

func (s *scriptedBackend) Decompose(ctx context.Context, req backend.DecomposeRequest) (string, error) {
	s.decomposeCalls++
	s.lastInstr = req.Instruction
	if len(s.decomposeQueue) == 0 {
		return "", errScriptExhausted
	}
	reply := s.decomposeQueue[0]
	s.decomposeQueue = s.decomposeQueue[1:]
	return reply.text, reply.err
}

func (s *scriptedBackend) DescribeCharacter(ctx context.Context, req backend.DescribeRequest) (string, error) {
	s.describeCalls++
	if len(s.describeQueue) == 0 {
		return "", backend.ErrUnsupported
	}
	reply := s.describeQueue[0]
	s.describeQueue = s.describeQueue[1:]
	return reply.text, reply.err
}

func (s *scriptedBackend) RenderPanel(ctx context.Context, req backend.RenderRequest) (*imagedom.ImageResponse, error) {
	s.renderCalls++
	s.renderSeeds = append(s.renderSeeds, req.Seed)
	s.renderPrompts = append(s.renderPrompts, req.Prompt)
	if len(s.renderQueue) == 0 {
		return nil, errScriptExhausted
	}
	reply := s.renderQueue[0]
	s.renderQueue = s.renderQueue[1:]
	return reply.img, reply.err
}
