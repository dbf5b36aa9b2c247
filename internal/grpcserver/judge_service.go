package grpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/handler/shared"
	"github.com/park285/turtle-soup-judge/internal/httperror"
	turtlesoupuc "github.com/park285/turtle-soup-judge/internal/usecase/turtlesoup"
)

// JudgeServiceName: gRPC 서비스 이름입니다.
const JudgeServiceName = "turtlesoup.v1.JudgeService"

// maxTextRunes 는 HTTP 판정 API 의 binding:"max=2000" 과 같은 글자 수 상한이다.
const maxTextRunes = 2000

const (
	judgeFullMethod       = "/" + JudgeServiceName + "/Judge"
	listPuzzlesFullMethod = "/" + JudgeServiceName + "/ListPuzzles"
)

// JudgeServer: 판정 gRPC 서비스 구현이 만족해야 하는 인터페이스입니다.
// 메시지는 google.protobuf.Struct 로 주고받으며 필드 이름은 HTTP JSON 과 같습니다.
type JudgeServer interface {
	Judge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListPuzzles(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// JudgeServiceDesc: 판정 서비스의 grpc.ServiceDesc 입니다.
var JudgeServiceDesc = grpc.ServiceDesc{
	ServiceName: JudgeServiceName,
	HandlerType: (*JudgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Judge", Handler: judgeHandler},
		{MethodName: "ListPuzzles", Handler: listPuzzlesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "turtlesoup/v1/judge.proto",
}

// RegisterJudgeServer: 서버에 판정 서비스를 등록합니다.
func RegisterJudgeServer(registrar grpc.ServiceRegistrar, srv JudgeServer) {
	registrar.RegisterService(&JudgeServiceDesc, srv)
}

func judgeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JudgeServer).Judge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: judgeFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JudgeServer).Judge(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listPuzzlesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JudgeServer).ListPuzzles(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listPuzzlesFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JudgeServer).ListPuzzles(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// JudgeClient: 판정 서비스 클라이언트입니다.
type JudgeClient struct {
	cc grpc.ClientConnInterface
}

// NewJudgeClient: 연결 위에 판정 클라이언트를 만듭니다.
func NewJudgeClient(cc grpc.ClientConnInterface) *JudgeClient {
	return &JudgeClient{cc: cc}
}

// Judge: 원격 판정을 호출합니다.
func (c *JudgeClient) Judge(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, judgeFullMethod, req, out, opts...); err != nil {
		return nil, fmt.Errorf("invoke judge: %w", err)
	}
	return out, nil
}

// ListPuzzles: 공개 퍼즐 목록을 조회합니다.
func (c *JudgeClient) ListPuzzles(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listPuzzlesFullMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, fmt.Errorf("invoke list puzzles: %w", err)
	}
	return out, nil
}

// PuzzleCatalog: gRPC 서비스가 쓰는 퍼즐 조회 기능입니다.
type PuzzleCatalog interface {
	GetByID(id string) (*domain.Puzzle, int, bool)
	All() []domain.Puzzle
}

type judgeRequest struct {
	PuzzleIndex *int   `json:"puzzle_index"`
	PuzzleID    string `json:"puzzle_id"`
	Text        string `json:"text"`
	IsGuess     bool   `json:"is_guess"`
}

// JudgeService: HTTP 판정 API 와 같은 판정기를 gRPC 로 노출합니다.
type JudgeService struct {
	judge   *turtlesoupuc.Judge
	puzzles PuzzleCatalog
	logger  *slog.Logger
}

// NewJudgeService: gRPC 판정 서비스를 생성합니다.
func NewJudgeService(judge *turtlesoupuc.Judge, puzzles PuzzleCatalog, logger *slog.Logger) *JudgeService {
	return &JudgeService{judge: judge, puzzles: puzzles, logger: logger}
}

// Judge: 요청 Struct 를 엄격하게 디코딩해 판정 하나를 돌려줍니다.
func (s *JudgeService) Judge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var payload judgeRequest
	if err := shared.DecodeStrict(req.AsMap(), &payload); err != nil {
		return nil, httperror.NewInvalidInput(err.Error())
	}
	if payload.PuzzleIndex != nil && *payload.PuzzleIndex < 0 {
		return nil, httperror.NewInvalidInput("puzzle_index must be >= 0")
	}
	if utf8.RuneCountInString(payload.Text) > maxTextRunes {
		return nil, httperror.NewInvalidInput(fmt.Sprintf("text must be at most %d characters", maxTextRunes))
	}

	var (
		result turtlesoupuc.Result
		index  = -1
	)
	if id := strings.TrimSpace(payload.PuzzleID); id != "" {
		puzzle, found, ok := s.puzzles.GetByID(id)
		if !ok {
			return nil, httperror.NewPuzzleNotFound(id)
		}
		index = found
		result = s.judge.Judge(ctx, puzzle, payload.Text, payload.IsGuess)
	} else {
		position := 0
		if payload.PuzzleIndex != nil {
			position = *payload.PuzzleIndex
		}
		result = s.judge.JudgeAt(ctx, position, payload.Text, payload.IsGuess)
	}

	fields := map[string]any{
		"result":     result.Text,
		"source":     string(result.Source),
		"is_verdict": result.IsVerdict,
		"request_id": RequestIDFromContext(ctx),
	}
	if result.IsVerdict {
		fields["verdict"] = string(result.Verdict)
	}
	if index >= 0 {
		fields["puzzle_index"] = index
	}
	return s.toStruct(ctx, fields)
}

// ListPuzzles: 정답과 사실 목록을 뺀 퍼즐 목록을 돌려줍니다.
func (s *JudgeService) ListPuzzles(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	all := s.puzzles.All()
	views := make([]any, 0, len(all))
	for i := range all {
		view := all[i].Public(i)
		views = append(views, map[string]any{
			"index":      view.Index,
			"id":         view.ID,
			"title":      view.Title,
			"opening":    view.Opening,
			"difficulty": view.Difficulty,
			"hint_count": view.HintCount,
		})
	}
	return s.toStruct(ctx, map[string]any{
		"puzzles": views,
		"total":   len(all),
	})
}

func (s *JudgeService) toStruct(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		shared.LogError(ctx, s.logger, "grpc_encode_failed", err)
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}
