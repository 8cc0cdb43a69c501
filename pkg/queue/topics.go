// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：cv.<域>.<动作>，尽量稳定且向后兼容.
// 域：upload(分片上传会话)、object(对象存储确认)

const (
	// 上传会话领域.
	TopicUploadInitiated = "cv.upload.initiated" // 已打开分片上传并写入元数据
	TopicUploadCompleted = "cv.upload.completed" // 对象存储已合并全部分片
	TopicUploadAborted   = "cv.upload.aborted"   // 会话被放弃，元数据已删除

	// 对象存储领域.
	TopicObjectConfirmed = "cv.object.confirmed" // 对账器收到对象创建通知并标记为 UPLOADED
)

// UploadTopics 上传会话相关主题集合.
var UploadTopics = []string{
	TopicUploadInitiated, TopicUploadCompleted, TopicUploadAborted,
}

// AllTopics 全部主题.
var AllTopics = append(append([]string{}, UploadTopics...), TopicObjectConfirmed)
