package service

import (
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/util"
	"fmt"
	"sort"
	"time"
)

// Clock 可注入的时间源
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// CheckingTime 计时暂停的累计时长：所有评分等待区间 [submittedAt, checkedAt 或 now] 的并集长度。
// 连续提交时等待区间会重叠，重叠部分只计一次。
func CheckingTime(now time.Time, subs []model.Submission) (time.Duration, error) {
	return excludedTime(now, subs, false)
}

// ActiveElapsed 从 startedAt 到 now 的有效作答时间，扣除截至 now 的评分等待时间
func ActiveElapsed(now, startedAt time.Time, subs []model.Submission) (time.Duration, error) {
	if now.Before(startedAt) {
		return 0, fmt.Errorf("%w: now %s before startedAt %s", util.ErrInvalidTimingRecord, now.Format(time.RFC3339), startedAt.Format(time.RFC3339))
	}
	excluded, err := excludedTime(now, subs, true)
	if err != nil {
		return 0, err
	}
	d := now.Sub(startedAt) - excluded
	if d < 0 {
		return 0, fmt.Errorf("%w: grading wait %s exceeds elapsed %s", util.ErrInvalidTimingRecord, excluded, now.Sub(startedAt))
	}
	return d, nil
}

type waitInterval struct {
	start, end time.Time
}

// waitIntervals 每次提交对应的等待区间。
// 未评分且不是最后一次的提交，在其后第一个评分决定落地时结束；其后都未评分则持续到 now。
func waitIntervals(now time.Time, subs []model.Submission, clip bool) ([]waitInterval, error) {
	out := make([]waitInterval, 0, len(subs))
	for i, s := range subs {
		var end time.Time
		switch {
		case s.CheckedAt != nil:
			if s.CheckedAt.Before(s.SubmittedAt) {
				return nil, fmt.Errorf("%w: submission %d checked before it was submitted", util.ErrInvalidTimingRecord, i)
			}
			end = *s.CheckedAt
		default:
			end = now
			for _, later := range subs[i+1:] {
				if later.CheckedAt != nil && later.CheckedAt.Before(end) {
					end = *later.CheckedAt
				}
			}
			if now.Before(s.SubmittedAt) && !clip && i == len(subs)-1 {
				return nil, fmt.Errorf("%w: pending submission %d is in the future", util.ErrInvalidTimingRecord, i)
			}
		}
		if clip && end.After(now) {
			end = now
		}
		if end.After(s.SubmittedAt) {
			out = append(out, waitInterval{start: s.SubmittedAt, end: end})
		}
	}
	return out, nil
}

// clip 为 true 时只统计 now 之前的部分，用于计算截至某一时刻（例如 finishedAt）的用时
func excludedTime(now time.Time, subs []model.Submission, clip bool) (time.Duration, error) {
	intervals, err := waitIntervals(now, subs, clip)
	if err != nil {
		return 0, err
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start.Before(intervals[j].start) })

	var total time.Duration
	var cur *waitInterval
	for i := range intervals {
		iv := intervals[i]
		if cur != nil && !iv.start.After(cur.end) {
			if iv.end.After(cur.end) {
				cur.end = iv.end
			}
			continue
		}
		if cur != nil {
			total += cur.end.Sub(cur.start)
		}
		cur = &iv
	}
	if cur != nil {
		total += cur.end.Sub(cur.start)
	}
	return total, nil
}
