package canonical

import "strings"

// KeywordOverlap computes the fraction of keywords that appear as substrings
// of the (lower-cased) name. Shared by the keyword match stage and the
// category classifier.
func KeywordOverlap(name string, keywords []string) float64 {
	if strings.TrimSpace(name) == "" || len(keywords) == 0 {
		return 0
	}

	haystack := strings.ToLower(name)
	hits := 0
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, keyword) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// Category pairs a subject label with its curated keyword list. Keywords mix
// English and Chinese terms because source records arrive in both languages.
type Category struct {
	Label    string
	Keywords []string
}

// Categories lists every subject category in registration order. The
// classifier breaks score ties by this order, so it must stay stable.
var Categories = []Category{
	{
		Label: "computer_science",
		Keywords: []string{
			"computer", "computing", "software", "programming", "code",
			"artificial intelligence", "ai", "machine learning", "ml",
			"deep learning", "neural",
			"data", "data science", "database", "big data",
			"algorithm", "theory", "information", "information system",
			"cyber", "security", "网络安全",
			"机器人", "人工智能", "机器学习", "深度学习",
			"计算机", "软件", "编程", "算法",
		},
	},
	{
		Label: "civil_engineering",
		Keywords: []string{
			"civil", "structural", "infrastructure",
			"geotechnical", "transportation", "bridge",
			"hydraulic", "construction",
			"土木", "结构", "岩土", "交通", "桥梁", "施工",
			"水利", "市政",
		},
	},
	{
		Label: "chemical_engineering",
		Keywords: []string{
			"chemical", "chemistry", "process", "reaction",
			"polymer", "bioprocess", "energy", "catalysis",
			"化工", "化学", "过程", "反应", "催化", "聚合物",
		},
	},
	{
		Label: "materials_science",
		Keywords: []string{
			"materials", "composite", "composites",
			"nano", "nanomaterials", "polymer", "metallurgy",
			"biomaterials",
			"材料", "复合材料", "金属", "纳米", "高分子",
		},
	},
	{
		Label: "mechanical_engineering",
		Keywords: []string{
			"mechanical", "mechatronics", "robotics",
			"manufacturing", "dynamics", "thermo", "fluid",
			"机械", "机电", "动力", "流体", "热能", "制造", "机器人",
		},
	},
	{
		Label: "electrical_engineering",
		Keywords: []string{
			"electrical", "electronics", "signal",
			"communication", "power", "semiconductor",
			"电气", "电子", "信号", "通信", "半导体", "电力",
		},
	},
	{
		Label: "biomedical_engineering",
		Keywords: []string{
			"biomedical", "bioengineering", "medical",
			"healthcare", "neuro", "neuroscience",
			"生物医学", "医工", "医疗", "神经", "生物工程",
		},
	},
	{
		Label: "environmental_engineering",
		Keywords: []string{
			"environment", "environmental", "sustainability",
			"ecology", "climate", "carbon",
			"环境", "生态", "可持续", "碳排放", "气候",
		},
	},
	{
		Label: "energy_engineering",
		Keywords: []string{
			"energy", "renewable", "nuclear", "power systems",
			"hydrogen", "battery",
			"能源", "可再生", "核能", "电力系统", "储能", "电池",
		},
	},
	{
		Label: "finance",
		Keywords: []string{
			"finance", "financial", "investment", "market",
			"fintech", "quant", "risk", "wealth",
			"金融", "投资", "量化", "风险", "财富", "资产",
		},
	},
	{
		Label: "management",
		Keywords: []string{
			"management", "business", "strategy", "consulting",
			"marketing", "hr", "supply chain", "operations",
			"商业", "管理", "运营", "供应链", "市场", "战略", "咨询",
		},
	},
	{
		Label: "data_science",
		Keywords: []string{
			"data science", "data analytics", "statistics",
			"machine learning", "ai", "big data",
			"数据科学", "数据分析", "统计", "人工智能",
		},
	},
	{
		Label: "mathematics",
		Keywords: []string{
			"mathematics", "applied math", "statistics",
			"algebra", "calculus", "probability",
			"数学", "应用数学", "统计",
		},
	},
	{
		Label: "communications_engineering",
		Keywords: []string{
			"communications", "signal processing", "wireless",
			"antenna", "5g", "通信", "信号处理", "无线",
		},
	},
	{
		Label: "life_science",
		Keywords: []string{
			"biology", "biotech", "biomedical",
			"生命科学", "生物", "生物技术",
		},
	},
}
