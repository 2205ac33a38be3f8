package kb

import "github.com/hyperjump/kotae/internal/models"

// DefaultKnowledgeBase returns the built-in course QA content used when no
// knowledge base file exists yet.
func DefaultKnowledgeBase() models.KnowledgeBase {
	return models.KnowledgeBase{
		Categories: []models.Category{
			{
				Name: "课程安排",
				QAPairs: []models.QAPair{
					{
						Question: "课程什么时候开始？",
						Answer:   "课程通常在每学期开学第一周开始。具体时间请查看课程表或联系任课教师。",
						Keywords: []string{"开始", "时间", "开学", "什么时候"},
					},
					{
						Question: "课程什么时候结束？",
						Answer:   "课程通常在每学期期末前一周结束。具体时间请查看课程表。",
						Keywords: []string{"结束", "时间", "期末", "什么时候"},
					},
					{
						Question: "课程的上课时间是什么？",
						Answer:   "课程的上课时间请查看课程表。通常会在选课系统中显示具体的上课时间和地点。",
						Keywords: []string{"上课时间", "时间", "课程表", "什么时候上课"},
					},
					{
						Question: "课程在哪里上课？",
						Answer:   "课程的上课地点请查看课程表。通常会在选课系统中显示具体的教室位置。",
						Keywords: []string{"地点", "教室", "在哪里", "上课地点"},
					},
				},
			},
			{
				Name: "作业要求",
				QAPairs: []models.QAPair{
					{
						Question: "作业什么时候交？",
						Answer:   "作业提交时间请查看课程资料中的作业要求。通常会在课程资料或作业通知中明确说明提交截止时间。",
						Keywords: []string{"作业", "提交", "截止", "什么时候交", "交作业"},
					},
					{
						Question: "作业怎么提交？",
						Answer:   "作业通常通过课程平台提交。请登录课程系统，找到对应的作业模块，按照要求上传作业文件。",
						Keywords: []string{"作业", "提交", "怎么交", "如何提交", "上传"},
					},
					{
						Question: "作业的格式要求是什么？",
						Answer:   "作业格式要求请查看课程资料中的作业说明。通常包括文件格式（如PDF、Word）、字数要求、格式规范等。",
						Keywords: []string{"格式", "要求", "作业格式", "文件格式"},
					},
					{
						Question: "作业可以迟交吗？",
						Answer:   "关于作业迟交政策，请查看课程资料中的作业要求或直接联系任课教师。不同课程可能有不同的政策。",
						Keywords: []string{"迟交", "延期", "晚交", "可以迟交"},
					},
					{
						Question: "作业占多少分？",
						Answer:   "作业在总成绩中的占比请查看课程大纲或成绩构成说明。通常会在课程开始时公布。",
						Keywords: []string{"分数", "占比", "成绩", "多少分", "权重"},
					},
				},
			},
			{
				Name: "考试安排",
				QAPairs: []models.QAPair{
					{
						Question: "什么时候考试？",
						Answer:   "考试时间请查看课程资料中的考试安排通知。通常会在考试前2-3周公布。",
						Keywords: []string{"考试", "时间", "什么时候", "考试时间"},
					},
					{
						Question: "考试地点在哪里？",
						Answer:   "考试地点请查看考试安排通知。通常会在考试前公布具体的考场位置。",
						Keywords: []string{"考试", "地点", "考场", "在哪里"},
					},
					{
						Question: "考试形式是什么？",
						Answer:   "考试形式（闭卷、开卷、机考等）请查看课程大纲或考试通知。不同课程可能有不同的考试形式。",
						Keywords: []string{"考试形式", "闭卷", "开卷", "机考", "形式"},
					},
					{
						Question: "考试范围是什么？",
						Answer:   "考试范围请查看课程资料中的考试大纲或复习资料。通常会在考试前公布。",
						Keywords: []string{"考试范围", "范围", "考什么", "复习范围"},
					},
				},
			},
			{
				Name: "成绩查询",
				QAPairs: []models.QAPair{
					{
						Question: "怎么查看成绩？",
						Answer:   "成绩可以通过课程系统查看。登录后进入成绩查询模块，即可查看各科成绩。",
						Keywords: []string{"成绩", "查看", "查询", "怎么查", "如何查看"},
					},
					{
						Question: "成绩什么时候公布？",
						Answer:   "成绩通常在考试结束后1-2周内公布。具体时间请关注课程通知。",
						Keywords: []string{"成绩", "公布", "什么时候", "出成绩"},
					},
					{
						Question: "成绩可以申诉吗？",
						Answer:   "如果对成绩有异议，可以联系任课教师进行申诉。请按照学校规定的申诉流程进行。",
						Keywords: []string{"成绩", "申诉", "异议", "可以申诉"},
					},
				},
			},
			{
				Name: "课程资料",
				QAPairs: []models.QAPair{
					{
						Question: "在哪里下载课程资料？",
						Answer:   "课程资料可以在课程系统的资料模块中下载。登录后找到对应的课程，进入资料页面即可下载。",
						Keywords: []string{"资料", "下载", "在哪里", "课程资料", "课件"},
					},
					{
						Question: "课程资料包括什么？",
						Answer:   "课程资料通常包括课件、讲义、作业要求、参考书目等。具体内容请查看课程资料列表。",
						Keywords: []string{"资料", "包括", "内容", "有什么"},
					},
				},
			},
			{
				Name: "其他问题",
				QAPairs: []models.QAPair{
					{
						Question: "如何联系老师？",
						Answer:   "可以通过课程系统中的消息功能联系老师，或者查看课程信息中的教师联系方式（邮箱、办公室等）。",
						Keywords: []string{"联系", "老师", "教师", "如何联系", "联系方式"},
					},
					{
						Question: "课程有答疑时间吗？",
						Answer:   "课程答疑时间请查看课程信息或课程通知。通常会在课程开始时公布答疑时间和地点。",
						Keywords: []string{"答疑", "时间", "答疑时间", "什么时候答疑"},
					},
				},
			},
		},
	}
}
