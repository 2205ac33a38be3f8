// Package e2e provides end-to-end tests over a realistic knowledge base and
// paraphrased questions.
package e2e

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// CorpusPair is one knowledge base entry in the E2E corpus.
type CorpusPair struct {
	Category string
	Question string
	Answer   string
	Keywords []string
}

// QueryTestCase defines a paraphrased query and the question it must match.
type QueryTestCase struct {
	Query            string
	ExpectedQuestion string
	ExpectedCategory string
	Description      string
}

// Corpus holds QA pairs and query test cases for E2E tests.
type Corpus struct {
	Pairs        []CorpusPair
	TestCases    []QueryTestCase
	TotalPairs   int
	TotalQueries int
}

// BuildCorpus returns a course QA corpus with paraphrase test cases. Each
// question carries a distinctive term so a paraphrase can only match one entry.
func BuildCorpus() *Corpus {
	pairs := buildPairs()
	cases := buildQueryTestCases()
	return &Corpus{
		Pairs:        pairs,
		TestCases:    cases,
		TotalPairs:   len(pairs),
		TotalQueries: len(cases),
	}
}

func buildPairs() []CorpusPair {
	return []CorpusPair{
		{"课程安排", "这门课程每周上几节课？", "每周两节，周二和周四各一节。", []string{"课时", "每周"}},
		{"课程安排", "上课地点在哪个教室？", "在主楼A301教室上课。", []string{"教室", "地点"}},
		{"课程安排", "课程需要什么先修知识？", "需要先修程序设计基础和离散数学。", []string{"先修", "基础"}},
		{"课程安排", "期中之后课程进度会加快吗？", "期中之后进入项目实践阶段，进度略有加快。", []string{"进度"}},
		{"作业要求", "平时作业怎么提交？", "通过课程平台在线提交，不接受纸质作业。", []string{"作业", "提交"}},
		{"作业要求", "作业迟交会扣多少分？", "每迟交一天扣总分的百分之十。", []string{"迟交", "扣分"}},
		{"作业要求", "编程作业可以组队完成吗？", "编程作业须独立完成，课程项目可以组队。", []string{"组队", "编程"}},
		{"作业要求", "大作业的选题有什么限制？", "选题需与课程内容相关，并经任课教师审核。", []string{"选题", "大作业"}},
		{"考试安排", "期末考试是开卷还是闭卷？", "期末考试为闭卷，可携带一页A4手写笔记。", []string{"开卷", "闭卷"}},
		{"考试安排", "期中考试占总成绩的比例是多少？", "期中考试占总成绩的百分之二十。", []string{"期中", "比例"}},
		{"考试安排", "缺考可以申请补考吗？", "因病缺考可凭证明申请补考。", []string{"补考", "缺考"}},
		{"考试安排", "考试范围包括哪些章节？", "覆盖第一章到第八章的全部内容。", []string{"范围", "章节"}},
		{"成绩查询", "最终成绩什么时候公布？", "考试结束两周内在教务系统公布。", []string{"成绩", "公布"}},
		{"成绩查询", "对成绩有异议怎么申请复核？", "成绩公布一周内向教务处提交复核申请。", []string{"复核", "异议"}},
		{"成绩查询", "平时分的构成是怎样的？", "平时分由出勤、作业和课堂表现构成。", []string{"平时分", "出勤"}},
		{"课程资料", "课件会在课后上传吗？", "每次课后当天上传到课程平台。", []string{"课件", "上传"}},
		{"课程资料", "有推荐的参考书目吗？", "推荐《算法导论》和课程讲义作为参考。", []string{"参考书", "书目"}},
		{"课程资料", "实验环境怎么配置？", "按照平台上的配置指南安装依赖即可。", []string{"实验", "环境", "配置"}},
		{"其他问题", "怎么联系助教答疑？", "可通过课程平台留言或在答疑时间到办公室。", []string{"助教", "答疑"}},
		{"其他问题", "旁听需要办理什么手续？", "旁听需经任课教师同意并到教务处备案。", []string{"旁听", "手续"}},
		{"其他问题", "How do I access the course forum?", "The forum link is on the course platform homepage.", []string{"forum"}},
	}
}

func buildQueryTestCases() []QueryTestCase {
	targets := []struct {
		query    string
		question string
		category string
	}{
		{"每周上几节课", "这门课程每周上几节课？", "课程安排"},
		{"上课地点在哪", "上课地点在哪个教室？", "课程安排"},
		{"课程的先修知识", "课程需要什么先修知识？", "课程安排"},
		{"作业怎么提交", "平时作业怎么提交？", "作业要求"},
		{"迟交作业扣多少分", "作业迟交会扣多少分？", "作业要求"},
		{"编程作业能组队吗", "编程作业可以组队完成吗？", "作业要求"},
		{"期末考试开卷还是闭卷", "期末考试是开卷还是闭卷？", "考试安排"},
		{"缺考怎么申请补考", "缺考可以申请补考吗？", "考试安排"},
		{"考试范围有哪些章节", "考试范围包括哪些章节？", "考试安排"},
		{"成绩什么时候公布", "最终成绩什么时候公布？", "成绩查询"},
		{"怎么申请成绩复核", "对成绩有异议怎么申请复核？", "成绩查询"},
		{"课件什么时候上传", "课件会在课后上传吗？", "课程资料"},
		{"实验环境怎么配置", "实验环境怎么配置？", "课程资料"},
		{"怎么联系助教", "怎么联系助教答疑？", "其他问题"},
		{"access the course forum", "How do I access the course forum?", "其他问题"},
	}
	cases := make([]QueryTestCase, 0, len(targets))
	for _, tc := range targets {
		cases = append(cases, QueryTestCase{
			Query:            tc.query,
			ExpectedQuestion: tc.question,
			ExpectedCategory: tc.category,
			Description:      fmt.Sprintf("query %q should match %q", tc.query, tc.question),
		})
	}
	return cases
}

// ToKnowledgeBase converts the corpus into the on-disk knowledge base shape,
// preserving category and pair order.
func (c *Corpus) ToKnowledgeBase() models.KnowledgeBase {
	var doc models.KnowledgeBase
	index := make(map[string]int)
	for _, p := range c.Pairs {
		i, ok := index[p.Category]
		if !ok {
			i = len(doc.Categories)
			index[p.Category] = i
			doc.Categories = append(doc.Categories, models.Category{Name: p.Category})
		}
		doc.Categories[i].QAPairs = append(doc.Categories[i].QAPairs, models.QAPair{
			Question: p.Question,
			Answer:   p.Answer,
			Keywords: append([]string(nil), p.Keywords...),
		})
	}
	return doc
}
