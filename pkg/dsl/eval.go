package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/projecthub/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量。
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境。
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是候选过滤的表达式解释器，使用 CEL (Common Expression Language) 实现。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：item.specialization == "Computer Science"
//   - 数值：item.score > 0.7
//   - 逻辑：item.difficulty != "advanced" && item.score >= 0.5
//   - 标签：label.recall_source != null / label.recall_source.contains("catalog")
//   - 集合："machine-learning" in item.tags
//   - 上下文：rctx.student_id != ""
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的表达式解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行表达式，返回布尔结果。
// 注意：访问不存在的 key 会报错，存在性检查使用 label.key != null。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据。
func (e *Eval) buildInput() map[string]interface{} {
	item := map[string]interface{}{
		"id":    e.item.ID,
		"score": e.item.Score,
	}
	if c := e.item.Candidate; c != nil {
		item["title"] = c.Title
		item["specialization"] = c.Specialization
		item["difficulty"] = string(c.Difficulty)
		item["supervisor_id"] = c.SupervisorID
		item["tags"] = c.Tags
		item["tech_stack"] = c.TechStack
	}

	// label 提供顶层访问：label.recall_source 直接返回 value
	labelAccessor := make(map[string]interface{}, len(e.item.Labels))
	for k, v := range e.item.Labels {
		labelAccessor[k] = v.Value
	}

	rctx := map[string]interface{}{}
	if e.rctx != nil {
		rctx["student_id"] = e.rctx.StudentID
		rctx["fallback"] = e.rctx.Fallback
		rctx["params"] = e.rctx.Params
	}

	return map[string]interface{}{
		"item":  item,
		"label": labelAccessor,
		"rctx":  rctx,
	}
}
