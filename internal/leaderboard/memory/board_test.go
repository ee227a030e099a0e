package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/racegame-go/internal/leaderboard"
	"github.com/mcoot/racegame-go/internal/model"
)

type BoardSuite struct {
	suite.Suite
	board *Board
	ctx   context.Context
	now   time.Time
}

func TestBoardSuite(t *testing.T) {
	suite.Run(t, new(BoardSuite))
}

func (s *BoardSuite) SetupTest() {
	s.board = New(3)
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *BoardSuite) entry(name string, secs int) leaderboard.Entry {
	s.now = s.now.Add(time.Second)
	return leaderboard.Entry{
		Name:       name,
		FinishTime: time.Duration(secs) * time.Second,
		Position:   1,
		RoomCode:   "ROOM",
		RecordedAt: s.now,
	}
}

func (s *BoardSuite) names(entries []leaderboard.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func (s *BoardSuite) TestTopOrdersFastestFirst() {
	for _, e := range []leaderboard.Entry{s.entry("slow", 30), s.entry("fast", 10), s.entry("mid", 20)} {
		s.Require().NoError(s.board.Record(s.ctx, e))
	}

	top, err := s.board.Top(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal([]string{"fast", "mid", "slow"}, s.names(top))
}

func (s *BoardSuite) TestTiesKeepRecordingOrder() {
	s.Require().NoError(s.board.Record(s.ctx, s.entry("first", 10)))
	s.Require().NoError(s.board.Record(s.ctx, s.entry("second", 10)))

	top, err := s.board.Top(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal([]string{"first", "second"}, s.names(top))
}

func (s *BoardSuite) TestKeepsOnlyBest() {
	for i, secs := range []int{40, 30, 20, 10, 50} {
		s.Require().NoError(s.board.Record(s.ctx, s.entry(string(rune('a'+i)), secs)))
	}

	top, err := s.board.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal([]string{"d", "c", "b"}, s.names(top))
}

func (s *BoardSuite) TestTopLimit() {
	s.Require().NoError(s.board.Record(s.ctx, s.entry("a", 1)))
	s.Require().NoError(s.board.Record(s.ctx, s.entry("b", 2)))

	top, err := s.board.Top(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(top, 1)
}

func (s *BoardSuite) TestRejectsInvalid() {
	err := s.board.Record(s.ctx, leaderboard.Entry{Name: "zero", Position: 1})
	s.ErrorIs(err, model.ErrInvalidResult)
}

func (s *BoardSuite) TestIdenticalEntriesKeepArrivalOrder() {
	first := s.entry("first", 10)
	second := first
	second.Name = "second"
	s.Require().NoError(s.board.Record(s.ctx, first))
	s.Require().NoError(s.board.Record(s.ctx, second))

	top, err := s.board.Top(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal([]string{"first", "second"}, s.names(top))
}
