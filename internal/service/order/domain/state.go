// internal/service/order/domain/state.go
package domain

// State 定义了订单的生命周期状态
type State string

const (
	StateCreated   State = "CREATED"   // 订单已创建并持久化，库存已预占，等待支付
	StatePaid      State = "PAID"      // 已支付
	StateCancelled State = "CANCELLED" // 已取消，终态，不允许再流转
)

// validTransitions 定义了合法的状态流转。
// CANCELLED 是终态；PAID 只能走向 CANCELLED。
var validTransitions = map[State][]State{
	StateCreated:   {StatePaid, StateCancelled},
	StatePaid:      {StateCancelled},
	StateCancelled: {},
}

// CanTransitionTo 判断从当前状态能否流转到目标状态。
func (s State) CanTransitionTo(target State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
