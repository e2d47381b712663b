package auth

import (
	"fmt"
	"time"

	sf "github.com/bwmarrin/snowflake"
)

// NewSnowflakeNode 创建雪花算法节点
// epoch: 起始日期，格式 "2006-01-02"
// machineID: 机器ID (0-1023)
func NewSnowflakeNode(epoch string, machineID int64) (*sf.Node, error) {
	if epoch != "" {
		st, err := time.Parse("2006-01-02", epoch)
		if err != nil {
			return nil, fmt.Errorf("解析雪花算法起始时间失败: %w", err)
		}
		sf.Epoch = st.UnixNano() / int64(time.Millisecond)
	}

	node, err := sf.NewNode(machineID)
	if err != nil {
		return nil, fmt.Errorf("创建雪花算法节点失败: %w", err)
	}
	return node, nil
}
