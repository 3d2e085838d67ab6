package generator

import (
	"context"
	"errors"

	imagedom "github.com/shouni/gemini-image-kit/ports"

	"github.com/ESV43/Com/pkg/backend"
	"github.com/ESV43/Com/pkg/domain"
)

// mockBackend は backend.Backend のテスト用実装なのだ。
// 応答はキュー形式で、呼び出しごとに先頭から消費する。
type mockBackend struct {
	kind domain.BackendKind
	caps backend.Capabilities

	decomposeCalls int
	lastDecompose  backend.DecomposeRequest
	decomposeQueue []decomposeReply

	renderCalls int
	renderSeeds []int64
	lastRender  backend.RenderRequest
	renderQueue []renderReply
}

type decomposeReply struct {
	text string
	err  error
}

type renderReply struct {
	img *imagedom.ImageResponse
	err error
}

var errQueueEmpty = errors.New("mock: 応答キューが空です")

func (m *mockBackend) Kind() domain.BackendKind           { return m.kind }
func (m *mockBackend) Capabilities() backend.Capabilities { return m.caps }

func (m *mockBackend) Decompose(ctx context.Context, req backend.DecomposeRequest) (string, error) {
	m.decomposeCalls++
	m.lastDecompose = req
	if len(m.decomposeQueue) == 0 {
		return "", errQueueEmpty
	}
	reply := m.decomposeQueue[0]
	m.decomposeQueue = m.decomposeQueue[1:]
	return reply.text, reply.err
}

func (m *mockBackend) DescribeCharacter(ctx context.Context, req backend.DescribeRequest) (string, error) {
	return "", backend.ErrUnsupported
}

func (m *mockBackend) RenderPanel(ctx context.Context, req backend.RenderRequest) (*imagedom.ImageResponse, error) {
	m.renderCalls++
	m.renderSeeds = append(m.renderSeeds, req.Seed)
	m.lastRender = req
	if len(m.renderQueue) == 0 {
		return nil, errQueueEmpty
	}
	reply := m.renderQueue[0]
	m.renderQueue = m.renderQueue[1:]
	return reply.img, reply.err
}
