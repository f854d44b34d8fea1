// 版权所有 2024 marketing-generator Authors. 保留所有权利。
// 此源代码的使用由 MIT 许可证管理，该许可证可在 LICENSE 文件中找到。

/*
包 evaluation 对生成的产物做质量校验。

VisionValidator 将横幅图片与评分细则一起发送给视觉模型，按五个维度
（brand_visibility、message_clarity、cta_effectiveness、visual_appeal、
overall_quality）打分，所有维度不低于 PassThreshold 才算通过。
模型自带的 passed 字段不参与判定。

视频产物不做自动评分，返回 manual_review 状态。
*/
package evaluation
