package progress

import (
	"math"
	"sort"
	"strings"
	"time"

	"study_buddy_backend/internal/model"

	"github.com/samber/lo"
	"gorm.io/datatypes"
)

const (
	WeakThreshold   = 50
	StrongThreshold = 70
)

// Band 主题掌握度三档分类
type Band int

const (
	BandNeutral Band = iota
	BandWeak
	BandStrong
)

func (b Band) String() string {
	switch b {
	case BandWeak:
		return "weak"
	case BandStrong:
		return "strong"
	default:
		return "neutral"
	}
}

// Classify <50 为薄弱，>=70 为擅长，中间档两者都不是
func Classify(percentage int) Band {
	switch {
	case percentage < WeakThreshold:
		return BandWeak
	case percentage >= StrongThreshold:
		return BandStrong
	default:
		return BandNeutral
	}
}

// AggregateTopics 按题目的 topic 标签统计题量，并用进度记录中的掌握度估算答对数。
// 结果按题量降序，返回完整集合；展示层自行截取前 N 个。
func AggregateTopics(quizzes []model.Quiz, progressTopics []model.TopicProgress) []model.TopicMasterySummary {
	totals := make(map[string]int)
	var order []string
	for _, quiz := range quizzes {
		for _, q := range quiz.Questions {
			topic := strings.TrimSpace(q.Topic)
			if topic == "" {
				continue
			}
			if _, ok := totals[topic]; !ok {
				order = append(order, topic)
			}
			totals[topic]++
		}
	}

	mastery := make(map[string]int, len(progressTopics))
	for _, tp := range progressTopics {
		if _, ok := mastery[tp.Topic]; !ok {
			mastery[tp.Topic] = clampPercent(tp.MasteryLevel)
		}
	}

	summaries := make([]model.TopicMasterySummary, 0, len(order))
	for _, topic := range order {
		total := totals[topic]
		correct := 0
		if level, ok := mastery[topic]; ok {
			correct = int(math.Round(float64(level) / 100 * float64(total)))
		}
		percentage := 0
		if total > 0 {
			percentage = roundRatio(correct, total)
		}
		summaries = append(summaries, model.TopicMasterySummary{
			Topic:      topic,
			Total:      total,
			Correct:    correct,
			Percentage: percentage,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Total > summaries[j].Total
	})
	return summaries
}

// TopN 截取前 n 个，n<=0 时返回空
func TopN(summaries []model.TopicMasterySummary, n int) []model.TopicMasterySummary {
	if n <= 0 {
		return []model.TopicMasterySummary{}
	}
	if len(summaries) <= n {
		return summaries
	}
	return summaries[:n]
}

// SplitSummaries 按 Percentage 划分薄弱/擅长主题
func SplitSummaries(summaries []model.TopicMasterySummary) (weak, strong []string) {
	weak, strong = []string{}, []string{}
	for _, s := range summaries {
		switch Classify(s.Percentage) {
		case BandWeak:
			weak = append(weak, s.Topic)
		case BandStrong:
			strong = append(strong, s.Topic)
		}
	}
	return weak, strong
}

// ClassifyTopics 按进度记录中的 MasteryLevel 划分薄弱/擅长主题
func ClassifyTopics(topics []model.TopicProgress) (weak, strong []string) {
	weak, strong = []string{}, []string{}
	for _, t := range topics {
		switch Classify(t.MasteryLevel) {
		case BandWeak:
			weak = append(weak, t.Topic)
		case BandStrong:
			strong = append(strong, t.Topic)
		}
	}
	return weak, strong
}

// RefreshClassification 由 Topics 重新派生 WeakTopics/StrongTopics
func RefreshClassification(p model.LearningProgress) model.LearningProgress {
	next := p.Clone()
	weak, strong := ClassifyTopics(next.Topics)
	next.WeakTopics = datatypes.JSONSlice[string](weak)
	next.StrongTopics = datatypes.JSONSlice[string](strong)
	return next
}

type topicTally struct {
	answered int
	correct  int
	concepts []string
}

// ApplyTopicResults 将一次作答按题目 topic 合并进主题掌握度。
// answers 与 quiz.Questions 按下标对应，缺失的答案计为答错。
func ApplyTopicResults(current model.LearningProgress, quiz model.Quiz, answers []int, completedAt time.Time) model.LearningProgress {
	next := current.Clone()

	tallies := make(map[string]*topicTally)
	var order []string
	for i, q := range quiz.Questions {
		topic := strings.TrimSpace(q.Topic)
		if topic == "" {
			continue
		}
		t, ok := tallies[topic]
		if !ok {
			t = &topicTally{}
			tallies[topic] = t
			order = append(order, topic)
		}
		t.answered++
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			t.correct++
		}
		t.concepts = append(t.concepts, q.Concepts...)
	}

	index := make(map[string]int, len(next.Topics))
	for i, tp := range next.Topics {
		index[tp.Topic] = i
	}

	for _, topic := range order {
		tally := tallies[topic]
		pos, ok := index[topic]
		if !ok {
			next.Topics = append(next.Topics, model.TopicProgress{
				Topic:           topic,
				Subject:         quiz.Subject,
				ConceptsCovered: []string{},
			})
			pos = len(next.Topics) - 1
			index[topic] = pos
		}

		entry := next.Topics[pos]
		if quiz.Subject != "" {
			entry.Subject = quiz.Subject
		}
		prevTaken := nonNegative(entry.QuizzesTaken)
		attemptPercent := roundRatio(tally.correct, tally.answered)

		entry.QuizzesTaken = prevTaken + 1
		entry.AverageScore = clampPercent(int(math.Round(
			float64(clampPercent(entry.AverageScore)*prevTaken+attemptPercent) / float64(entry.QuizzesTaken),
		)))
		entry.QuestionsAnswered = nonNegative(entry.QuestionsAnswered) + tally.answered
		entry.QuestionsCorrect = nonNegative(entry.QuestionsCorrect) + tally.correct
		entry.MasteryLevel = clampPercent(roundRatio(entry.QuestionsCorrect, entry.QuestionsAnswered))
		if completedAt.After(entry.LastStudied) {
			entry.LastStudied = completedAt
		}
		entry.ConceptsCovered = lo.Uniq(lo.Filter(append(entry.ConceptsCovered, tally.concepts...), func(c string, _ int) bool {
			return strings.TrimSpace(c) != ""
		}))

		next.Topics[pos] = entry
	}

	return next
}

// RecentTopics 按最近学习时间倒序取前 n 个主题名
func RecentTopics(topics []model.TopicProgress, n int) []string {
	if n <= 0 {
		return []string{}
	}
	sorted := append([]model.TopicProgress(nil), topics...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastStudied.After(sorted[j].LastStudied)
	})
	names := lo.Map(sorted, func(t model.TopicProgress, _ int) string { return t.Topic })
	if len(names) > n {
		names = names[:n]
	}
	return names
}
