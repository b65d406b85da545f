package core

// ProjectCandidate 是候选项目，对引擎只读。
// 数据来源于项目目录（CatalogSource），引擎不持有其权威数据。
type ProjectCandidate struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Abstract       string     `json:"abstract"`
	Specialization string     `json:"specialization"`
	Difficulty     Difficulty `json:"difficulty"`
	Tags           []string   `json:"tags"`
	TechStack      []string   `json:"tech_stack"`
	SupervisorID   string     `json:"supervisor_id"`
	SupervisorName string     `json:"supervisor_name"`
}
