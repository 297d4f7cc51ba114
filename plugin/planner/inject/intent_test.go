package inject

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    Intent
	}{
		{"你现在在干嘛？", IntentQueryCurrent},
		{"在忙吗", IntentQueryCurrent},
		{"你不是在吃饭吗", IntentQueryCurrent},
		{"等下有什么安排", IntentQueryFuture},
		{"接下来打算做点什么呢，有计划吗", IntentQueryFuture},
		{"Python怎么安装", IntentTechQuestion},
		{"这段代码为什么报错", IntentTechQuestion},
		{"/help", IntentCommand},
		{"git status", IntentCommand},
		{"sudo apt update", IntentCommand},
		{"哈哈哈", IntentCasualChat},
		{"你好呀", IntentCasualChat},
		{"今天天气不错，适合出门散步晒太阳", IntentCasualChat},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got, confidence := Classify(tt.message)
			require.Equal(t, tt.want, got)
			require.Greater(t, confidence, 0.0)
		})
	}
}

func TestClassifyEmptyMessage(t *testing.T) {
	got, confidence := Classify("   ")
	require.Equal(t, IntentUnknown, got)
	require.Zero(t, confidence)
}

func TestClassifyShortQuestionIsCurrentQuery(t *testing.T) {
	got, confidence := Classify("呢？")
	require.Equal(t, IntentQueryCurrent, got)
	require.InDelta(t, 0.6, confidence, 0.001)
}

func TestClassifyCommandConfidence(t *testing.T) {
	got, confidence := Classify("/schedule today")
	require.Equal(t, IntentCommand, got)
	require.Equal(t, 1.0, confidence)
}

func TestExtractTimeRange(t *testing.T) {
	tr := ExtractTimeRange("下午有什么安排")
	require.NotNil(t, tr)
	require.Equal(t, "下午", tr.Name)
	require.Equal(t, 14, tr.StartHour)
	require.Equal(t, 18, tr.EndHour)

	tr = ExtractTimeRange("晚上呢")
	require.NotNil(t, tr)
	require.Equal(t, 18, tr.StartHour)

	require.Nil(t, ExtractTimeRange("在干嘛"))
	require.Nil(t, ExtractTimeRange(""))
}
