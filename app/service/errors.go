package service

import "fmt"

// StageBusyError 已有阶段在执行中，新的推进请求被拒绝
type StageBusyError struct {
	Current Stage
}

func (e *StageBusyError) Error() string {
	return fmt.Sprintf("当前阶段 %s 正在执行中，请等待完成", e.Current)
}

// StageOrderError 当前状态不允许执行目标阶段
type StageOrderError struct {
	Current Stage
	Want    string
}

func (e *StageOrderError) Error() string {
	return fmt.Sprintf("当前状态 %s 不能执行 %s", e.Current, e.Want)
}

// PresetBusyError 已有预设动画在生成中
type PresetBusyError struct {
	Pending string
}

func (e *PresetBusyError) Error() string {
	return fmt.Sprintf("预设动画 %s 正在生成中", e.Pending)
}

// CharacterNotFoundError 图鉴中没有这个角色
type CharacterNotFoundError struct {
	ID string
}

func (e *CharacterNotFoundError) Error() string {
	return fmt.Sprintf("角色 %s 不存在", e.ID)
}
